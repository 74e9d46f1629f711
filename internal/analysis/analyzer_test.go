// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"spectra/internal/dsp"

	"github.com/go-audio/audio"
	"gonum.org/v1/gonum/floats"
)

// sine returns frames of an interleaved sine with the same value on every
// channel.
func sine(freq float64, rate, channels, frames int, amp float64) []float32 {
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		v := float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return out
}

func newTestAnalyzer(t testing.TB, channels, rate, n int, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(&audio.Format{NumChannels: channels, SampleRate: rate}, n, opts...)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name    string
		format  *audio.Format
		n       int
		wantErr string
	}{
		{"nil format", nil, 1024, "format is required"},
		{"zero channels", &audio.Format{NumChannels: 0, SampleRate: 44100}, 1024, "channel count"},
		{"negative rate", &audio.Format{NumChannels: 2, SampleRate: -1}, 1024, "sample rate"},
		{"not power of two", &audio.Format{NumChannels: 2, SampleRate: 44100}, 1000, "nearest valid: 1024"},
		{"too short", &audio.Format{NumChannels: 2, SampleRate: 44100}, 1, "power of two >= 2"},
		{"zero", &audio.Format{NumChannels: 2, SampleRate: 44100}, 0, "power of two >= 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer(tt.format, tt.n)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewAnalyzerAccessors(t *testing.T) {
	a := newTestAnalyzer(t, 2, 48000, 2048, WithWindow(dsp.Blackman))
	if a.FFTLength() != 2048 || a.Bins() != 1024 {
		t.Errorf("FFTLength/Bins = %d/%d", a.FFTLength(), a.Bins())
	}
	if a.Channels() != 2 || a.SampleRate() != 48000 {
		t.Errorf("Channels/SampleRate = %d/%d", a.Channels(), a.SampleRate())
	}
	if a.Window() != dsp.Blackman {
		t.Errorf("Window = %v", a.Window())
	}
	if got := a.BinFrequency(1); math.Abs(got-48000.0/2048) > 1e-9 {
		t.Errorf("BinFrequency(1) = %v", got)
	}
	if a.BinFrequency(-1) != 0 || a.BinFrequency(1024) != 0 {
		t.Error("out of range bins must report 0 Hz")
	}
}

func TestSpectrumZeroBeforeFirstPublish(t *testing.T) {
	a := newTestAnalyzer(t, 2, 44100, 1024)
	a.Process(sine(440, 44100, 2, 1000, 1)) // one window not yet complete

	spectrum, err := a.Spectrum()
	if err != nil {
		t.Fatalf("Spectrum: %v", err)
	}
	if len(spectrum) != 512 {
		t.Fatalf("len = %d, want 512", len(spectrum))
	}
	for i, v := range spectrum {
		if v != 0 {
			t.Fatalf("bin %d = %v before first publish", i, v)
		}
	}
	if a.Publishes() != 0 {
		t.Errorf("Publishes = %d, want 0", a.Publishes())
	}
}

func TestProcessPassThrough(t *testing.T) {
	a := newTestAnalyzer(t, 2, 44100, 256)
	in := sine(1000, 44100, 2, 300, 0.8)
	orig := append([]float32(nil), in...)

	out := a.Process(in)
	if &out[0] != &in[0] || len(out) != len(in) {
		t.Fatal("Process must return the same slice")
	}
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("sample %d modified: %v -> %v", i, orig[i], in[i])
		}
	}
}

func TestSineAt1kHzPeaksNearBin93(t *testing.T) {
	const (
		rate = 44100
		n    = 4096
	)
	a := newTestAnalyzer(t, 2, rate, n)
	a.Process(sine(1000, rate, 2, n, 1))

	if a.Publishes() != 1 {
		t.Fatalf("Publishes = %d, want 1", a.Publishes())
	}
	spectrum, err := a.Spectrum()
	if err != nil {
		t.Fatalf("Spectrum: %v", err)
	}
	peak := floats.MaxIdx(spectrum)
	if peak < 92 || peak > 94 {
		t.Errorf("peak bin = %d, want 93±1", peak)
	}
	if f := a.BinFrequency(peak); math.Abs(f-1000) > float64(rate)/n {
		t.Errorf("peak frequency = %.1f Hz, want within one bin of 1000 Hz", f)
	}
}

func TestAllZeroInput(t *testing.T) {
	a := newTestAnalyzer(t, 2, 44100, 1024)
	a.Process(make([]float32, 2*1024))

	spectrum, err := a.Spectrum()
	if err != nil {
		t.Fatalf("Spectrum: %v", err)
	}
	if m := floats.Max(spectrum); m > 1e-12 {
		t.Errorf("max magnitude = %v, want ~0", m)
	}

	m := NewMeter(DefaultBandCount)
	m.Attach(a)
	for i, v := range m.Tick() {
		if math.Abs(v-BandFloor) > 1e-12 {
			t.Errorf("band %d = %v, want %v", i, v, BandFloor)
		}
	}
}

func TestChunkingInvariance(t *testing.T) {
	const (
		ch = 2
		n  = 1024
	)
	in := sine(1234, 44100, ch, 3*n+17, 0.7)

	whole := newTestAnalyzer(t, ch, 44100, n)
	whole.Process(in)

	byFrame := newTestAnalyzer(t, ch, 44100, n)
	for i := 0; i < len(in); i += ch {
		byFrame.Process(in[i : i+ch])
	}

	ragged := newTestAnalyzer(t, ch, 44100, n)
	sizes := []int{1, 7, 64, 333, 2}
	for i, k := 0, 0; i < len(in); k++ {
		end := min(i+sizes[k%len(sizes)]*ch, len(in))
		ragged.Process(in[i:end])
		i = end
	}

	want, _ := whole.Spectrum()
	for name, a := range map[string]*Analyzer{"per-frame": byFrame, "ragged": ragged} {
		if a.Publishes() != whole.Publishes() {
			t.Errorf("%s: Publishes = %d, want %d", name, a.Publishes(), whole.Publishes())
		}
		if a.pos != whole.pos {
			t.Errorf("%s: carried %d samples, want %d", name, a.pos, whole.pos)
		}
		got, _ := a.Spectrum()
		if !floats.Equal(got, want) {
			t.Errorf("%s: spectrum differs from single-block processing", name)
		}
	}
	if whole.Publishes() != 3 || whole.pos != 17 {
		t.Errorf("whole: Publishes=%d pos=%d, want 3 and 17", whole.Publishes(), whole.pos)
	}
}

func TestPartialFrameAveragesPresentSamples(t *testing.T) {
	a := newTestAnalyzer(t, 2, 44100, 8)
	a.Process([]float32{0, 0})
	a.Process([]float32{0.25, 0.5, 0.75})

	if a.pos != 3 {
		t.Fatalf("pos = %d, want 3", a.pos)
	}
	if got, want := real(a.frame[1]), 0.375*a.window[1]; math.Abs(got-want) > 1e-12 {
		t.Errorf("frame[1] = %v, want %v", got, want)
	}
	if got, want := real(a.frame[2]), 0.75*a.window[2]; math.Abs(got-want) > 1e-12 {
		t.Errorf("frame[2] = %v, want %v (partial frame of one sample)", got, want)
	}
}

func TestObserverCalledPerPublish(t *testing.T) {
	var seqs []uint64
	a := newTestAnalyzer(t, 1, 8000, 64, WithObserver(func(seq uint64) { seqs = append(seqs, seq) }))
	a.Process(make([]float32, 64*3))

	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Errorf("observed %v, want [1 2 3]", seqs)
	}
}

func TestCloseStopsPublishing(t *testing.T) {
	a := newTestAnalyzer(t, 1, 8000, 64)
	a.Process(sine(500, 8000, 1, 64, 1))
	before, _ := a.Spectrum()

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	in := sine(1500, 8000, 1, 64*4, 1)
	if out := a.Process(in); len(out) != len(in) {
		t.Fatal("Process must still pass samples through after Close")
	}
	if a.Publishes() != 1 {
		t.Errorf("Publishes = %d after Close, want 1", a.Publishes())
	}

	after, err := a.Spectrum()
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Spectrum err = %v, want ErrClosed", err)
	}
	if !floats.Equal(before, after) {
		t.Error("Spectrum after Close must be the last published one")
	}
}

func TestTransformPanicIsRecovered(t *testing.T) {
	a := newTestAnalyzer(t, 1, 8000, 64, WithObserver(func(uint64) { panic("observer exploded") }))

	a.Process(make([]float32, 128))
	if a.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", a.Dropped())
	}
	// The spectrum itself was installed before the observer ran.
	if a.Publishes() != 2 {
		t.Errorf("Publishes = %d, want 2", a.Publishes())
	}
}

func TestProcessBuffer(t *testing.T) {
	a := newTestAnalyzer(t, 2, 44100, 128)
	a.ProcessBuffer(nil)
	a.ProcessBuffer(&audio.Float32Buffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:   sine(440, 44100, 2, 128, 1),
	})
	if a.Publishes() != 1 {
		t.Errorf("Publishes = %d, want 1", a.Publishes())
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	a := newTestAnalyzer(t, 2, 44100, 1024)
	block := sine(440, 44100, 2, 700, 1)

	allocs := testing.AllocsPerRun(50, func() {
		a.Process(block)
	})
	if allocs != 0 {
		t.Errorf("Process allocated %.1f times per call", allocs)
	}
	if a.Publishes() == 0 {
		t.Fatal("benchmark block never completed a window")
	}
}

func BenchmarkProcess(b *testing.B) {
	a := newTestAnalyzer(b, 2, 44100, DefaultFFTLength)
	block := sine(440, 44100, 2, 512, 1)
	b.ReportAllocs()
	for b.Loop() {
		a.Process(block)
	}
}
