// SPDX-License-Identifier: MIT
package analysis

import "github.com/go-audio/audio"

// Tap sits between a Source and whatever pulls from it (normally the output
// device). Every sample is forwarded unchanged; a copy of what passed through
// is analyzed on the way.
type Tap struct {
	src      Source
	analyzer *Analyzer
}

// Compile-time check that a Tap can itself be chained as a Source.
var _ Source = (*Tap)(nil)

// NewTap wraps src so that everything read through it is fed to a.
func NewTap(src Source, a *Analyzer) *Tap {
	return &Tap{src: src, analyzer: a}
}

// Wrap builds an Analyzer for src's format and returns it behind a Tap.
func Wrap(src Source, fftLength int, opts ...Option) (*Tap, error) {
	a, err := NewAnalyzer(src.Format(), fftLength, opts...)
	if err != nil {
		return nil, err
	}
	return NewTap(src, a), nil
}

// Read pulls from the wrapped source and analyzes the samples it returned.
func (t *Tap) Read(dst []float32) (int, error) {
	n, err := t.src.Read(dst)
	if n > 0 {
		t.analyzer.Process(dst[:n])
	}
	return n, err
}

// Format reports the wrapped source's format.
func (t *Tap) Format() *audio.Format {
	return t.src.Format()
}

// Analyzer returns the analyzer fed by this tap.
func (t *Tap) Analyzer() *Analyzer {
	return t.analyzer
}
