// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"sync"
	"testing"
)

func TestPublisherInitialZeros(t *testing.T) {
	p := NewPublisher(16)
	got, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("bin %d = %v, want 0", i, v)
		}
	}
	if p.Sequence() != 0 || p.Bins() != 16 {
		t.Errorf("Sequence/Bins = %d/%d", p.Sequence(), p.Bins())
	}
}

func TestPublishSwapsBuffers(t *testing.T) {
	p := NewPublisher(4)
	first := []float64{1, 2, 3, 4}

	prev := p.Publish(first)
	if len(prev) != 4 {
		t.Fatalf("returned buffer has length %d", len(prev))
	}
	if &prev[0] == &first[0] {
		t.Fatal("Publish must hand back the replaced buffer, not the new one")
	}

	got, _ := p.Read()
	if got[2] != 3 {
		t.Errorf("Read = %v", got)
	}
	got[2] = 99
	again, _ := p.Read()
	if again[2] != 3 {
		t.Error("Read must return a copy")
	}
	if p.Sequence() != 1 {
		t.Errorf("Sequence = %d, want 1", p.Sequence())
	}
}

func TestPublishWrongLengthIgnored(t *testing.T) {
	p := NewPublisher(4)
	next := []float64{1, 2}
	if back := p.Publish(next); &back[0] != &next[0] {
		t.Error("mismatched buffer must be returned unchanged")
	}
	if p.Sequence() != 0 {
		t.Error("mismatched buffer must not be published")
	}
}

func TestReadInto(t *testing.T) {
	p := NewPublisher(3)
	p.Publish([]float64{7, 8, 9})

	dst := make([]float64, 3)
	if err := p.ReadInto(dst); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	if dst[0] != 7 || dst[2] != 9 {
		t.Errorf("dst = %v", dst)
	}
	if err := p.ReadInto(make([]float64, 2)); !errors.Is(err, ErrLength) {
		t.Errorf("short dst: err = %v, want ErrLength", err)
	}
	if allocs := testing.AllocsPerRun(100, func() { p.ReadInto(dst) }); allocs != 0 {
		t.Errorf("ReadInto allocated %.1f times", allocs)
	}
}

func TestPublisherClose(t *testing.T) {
	p := NewPublisher(2)
	p.Publish([]float64{0.5, 0.25})
	p.Close()
	p.Close()

	next := []float64{9, 9}
	if back := p.Publish(next); &back[0] != &next[0] {
		t.Error("Publish after Close must return next unchanged")
	}

	got, err := p.Read()
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Read err = %v, want ErrClosed", err)
	}
	if got[0] != 0.5 || got[1] != 0.25 {
		t.Errorf("Read after Close = %v, want last snapshot", got)
	}
	dst := make([]float64, 2)
	if err := p.ReadInto(dst); !errors.Is(err, ErrClosed) || dst[0] != 0.5 {
		t.Errorf("ReadInto after Close = %v, %v", dst, err)
	}
}

// Every published spectrum is uniform, so a reader that ever sees two
// different values in one snapshot has observed a torn read.
func TestPublisherNoTornReads(t *testing.T) {
	const bins = 512
	p := NewPublisher(bins)

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		buf := make([]float64, bins)
		for k := 1; ; k++ {
			select {
			case <-stop:
				return
			default:
			}
			for i := range buf {
				buf[i] = float64(k)
			}
			buf = p.Publish(buf)
		}
	}()

	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			dst := make([]float64, bins)
			for i := 0; i < 2000; i++ {
				if err := p.ReadInto(dst); err != nil {
					t.Errorf("ReadInto: %v", err)
					return
				}
				for j := 1; j < bins; j++ {
					if dst[j] != dst[0] {
						t.Errorf("torn read: bin 0 = %v, bin %d = %v", dst[0], j, dst[j])
						return
					}
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	<-writerDone
	if p.Sequence() == 0 {
		t.Error("writer never published")
	}
}
