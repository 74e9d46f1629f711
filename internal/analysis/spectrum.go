// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrClosed is returned by reads after the analyzer has been torn down. The
	// returned snapshot is still the last complete spectrum.
	ErrClosed = errors.New("analysis: analyzer closed")

	// ErrLength is returned when a destination slice does not match the
	// spectrum length.
	ErrLength = errors.New("analysis: destination length mismatch")
)

// Publisher owns the most recent magnitude spectrum. The audio thread hands it
// complete spectra with Publish; any number of readers take copies with Read
// or ReadInto. The only shared state is the current slice header, swapped
// under a write lock, so readers see either the previous spectrum or the new
// one and never a mix of both.
type Publisher struct {
	mu      sync.RWMutex
	current []float64
	seq     uint64
	closed  bool
}

// NewPublisher returns a publisher holding an all-zero spectrum of bins values.
func NewPublisher(bins int) *Publisher {
	return &Publisher{current: make([]float64, bins)}
}

// Publish installs next as the current spectrum and returns the buffer it
// replaced so the caller can reuse it for the following transform. After
// Close, or if next has the wrong length, nothing is installed and next itself
// is returned.
func (p *Publisher) Publish(next []float64) []float64 {
	p.mu.Lock()
	if p.closed || len(next) != len(p.current) {
		p.mu.Unlock()
		return next
	}
	prev := p.current
	p.current = next
	p.seq++
	p.mu.Unlock()
	return prev
}

// Read returns a copy of the current spectrum. After Close the copy is the
// last published spectrum and the error is ErrClosed.
func (p *Publisher) Read() ([]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]float64, len(p.current))
	copy(out, p.current)
	if p.closed {
		return out, ErrClosed
	}
	return out, nil
}

// ReadInto copies the current spectrum into dst without allocating. dst must
// have exactly Bins() elements.
func (p *Publisher) ReadInto(dst []float64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(dst) != len(p.current) {
		return fmt.Errorf("%w: got %d, want %d", ErrLength, len(dst), len(p.current))
	}
	copy(dst, p.current)
	if p.closed {
		return ErrClosed
	}
	return nil
}

// Sequence returns the number of spectra published so far.
func (p *Publisher) Sequence() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seq
}

// Bins returns the spectrum length.
func (p *Publisher) Bins() int {
	return len(p.current)
}

// Close stops accepting new spectra. It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
