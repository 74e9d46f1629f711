// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	applog "spectra/internal/log"
)

type recorder struct {
	sent    []any
	closed  int
	sendErr error
}

func (r *recorder) Send(data any) error {
	r.sent = append(r.sent, data)
	return r.sendErr
}

func (r *recorder) Close() error {
	r.closed++
	return nil
}

func TestFanoutDeliversToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, b}

	frame := Frame{Sequence: 1, Bands: []float64{0.5}}
	if err := f.Send(frame); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Fatalf("sent = %d/%d, want 1/1", len(a.sent), len(b.sent))
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Errorf("closed = %d/%d, want 1/1", a.closed, b.closed)
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	a, b := &recorder{sendErr: errA}, &recorder{}

	err := Fanout{a, b}.Send(Frame{})
	if !errors.Is(err, errA) {
		t.Errorf("err = %v, want %v", err, errA)
	}
	if len(b.sent) != 1 {
		t.Error("a failing transport must not stop delivery to the rest")
	}
}

func TestLoggingTransportSampling(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	defer applog.SetOutput(os.Stderr)
	orig := applog.GetLevel()
	applog.SetLevel(applog.LevelDebug)
	defer applog.SetLevel(orig)

	lt := NewLoggingTransport(3)
	for i := 1; i <= 6; i++ {
		if err := lt.Send(Frame{Sequence: uint64(i), Bands: []float64{0.1}}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	out := buf.String()
	if got := strings.Count(out, "LOG_TRANSPORT: frame"); got != 2 {
		t.Errorf("logged %d frames, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "frame 3 ") || !strings.Contains(out, "frame 6 ") {
		t.Errorf("expected frames 3 and 6 in:\n%s", out)
	}
}
