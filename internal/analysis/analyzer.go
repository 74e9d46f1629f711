// SPDX-License-Identifier: MIT

/*
Package analysis implements the spectrum analyzer that sits inline in the
playback path and the consumer-side band meter that turns its output into
visualization values.

Two goroutines touch this package:
  - the audio callback, which calls Analyzer.Process (directly or through a
    Tap) for every device buffer and must never block;
  - the UI tick, which calls Meter.Tick on a fixed period.

They share exactly one thing, the Publisher's current spectrum, guarded by a
short RWMutex around the swap and the copy-out.
*/
package analysis

import (
	"errors"
	"fmt"
	"sync/atomic"

	"spectra/internal/dsp"
	applog "spectra/internal/log"
	"spectra/pkg/bitint"

	"github.com/go-audio/audio"
)

// DefaultFFTLength is the transform length used when none is configured.
const DefaultFFTLength = 4096

// Source is a pull-based provider of interleaved float32 samples. Read fills
// dst with whole frames where possible and returns io.EOF once the stream is
// exhausted.
type Source interface {
	Read(dst []float32) (int, error)
	Format() *audio.Format
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWindow selects the analysis window. The default is Hann.
func WithWindow(fn dsp.WindowFunc) Option {
	return func(a *Analyzer) { a.windowFn = fn }
}

// WithObserver registers fn to be called on the audio goroutine after every
// publish with the new sequence number. fn must be cheap and must not block.
func WithObserver(fn func(seq uint64)) Option {
	return func(a *Analyzer) { a.observer = fn }
}

// Analyzer accumulates mono-downmixed, windowed samples and runs one transform
// for every fftLength of them. Windows do not overlap. Process must only be
// called from one goroutine at a time; everything else is safe for concurrent
// use.
type Analyzer struct {
	channels   int
	sampleRate int
	fftLength  int
	windowFn   dsp.WindowFunc
	window     []float64 // immutable after construction

	frame []complex128 // window being filled by Process
	work  []complex128 // transform runs here so frame is never half-transformed
	spare []float64    // next magnitude buffer, swapped with the publisher
	pos   int

	publisher *Publisher
	observer  func(seq uint64)

	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewAnalyzer validates the stream format and transform length and allocates
// every buffer the hot path needs. fftLength must be a power of two >= 2.
func NewAnalyzer(format *audio.Format, fftLength int, opts ...Option) (*Analyzer, error) {
	if format == nil {
		return nil, errors.New("analysis: audio format is required")
	}
	if format.NumChannels <= 0 {
		return nil, fmt.Errorf("analysis: channel count must be positive, got %d", format.NumChannels)
	}
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("analysis: sample rate must be positive, got %d", format.SampleRate)
	}
	if fftLength < 2 || !bitint.IsPowerOfTwo(fftLength) {
		return nil, fmt.Errorf("analysis: fft length must be a power of two >= 2, got %d (nearest valid: %d)",
			fftLength, max(2, bitint.NextPowerOfTwo(fftLength)))
	}

	a := &Analyzer{
		channels:   format.NumChannels,
		sampleRate: format.SampleRate,
		fftLength:  fftLength,
		windowFn:   dsp.Hann,
	}
	for _, opt := range opts {
		opt(a)
	}

	bins := fftLength / 2
	a.window = dsp.NewWindow(fftLength, a.windowFn)
	a.frame = make([]complex128, fftLength)
	a.work = make([]complex128, fftLength)
	a.spare = make([]float64, bins)
	a.publisher = NewPublisher(bins)

	applog.Infof("Analysis: Initializing analyzer (Size: %d, Stages: %d, SampleRate: %d Hz, Channels: %d, Window: %v)",
		fftLength, bitint.Log2(fftLength), a.sampleRate, a.channels, a.windowFn)

	return a, nil
}

// Process feeds an interleaved block through the analyzer and returns it
// unchanged. Blocks may be any length; a window that is only partly filled
// when the block ends is completed by later calls.
//
// Performance Critical (Hot Path):
// - No allocations
// - No locks except the publisher swap once per window
func (a *Analyzer) Process(samples []float32) []float32 {
	if a.closed.Load() {
		return samples
	}

	ch := a.channels
	for i := 0; i < len(samples); i += ch {
		// A trailing partial frame averages only the samples that are present
		// rather than dividing by the full channel count, so a truncated
		// block does not pull the last mono sample towards zero.
		end := min(i+ch, len(samples))
		var sum float64
		for _, s := range samples[i:end] {
			sum += float64(s)
		}
		mono := sum / float64(end-i)

		a.frame[a.pos] = complex(mono*a.window[a.pos], 0)
		a.pos++
		if a.pos == a.fftLength {
			a.pos = 0
			a.transformAndPublish()
		}
	}
	return samples
}

// ProcessBuffer is Process for go-audio buffers.
func (a *Analyzer) ProcessBuffer(buf *audio.Float32Buffer) {
	if buf == nil {
		return
	}
	a.Process(buf.Data)
}

// transformAndPublish must never take the audio path down with it, so a
// failure drops this one spectrum and is counted.
func (a *Analyzer) transformAndPublish() {
	defer func() {
		if r := recover(); r != nil {
			a.dropped.Add(1)
			applog.Errorf("Analysis: transform failed, spectrum dropped: %v", r)
		}
	}()

	copy(a.work, a.frame)
	dsp.Transform(a.work)
	dsp.Magnitudes(a.spare, a.work)
	a.spare = a.publisher.Publish(a.spare)

	if a.observer != nil {
		a.observer(a.publisher.Sequence())
	}
}

// Spectrum returns a copy of the latest magnitude spectrum (fftLength/2 bins).
// Before the first transform it is all zeros.
func (a *Analyzer) Spectrum() ([]float64, error) {
	return a.publisher.Read()
}

// SpectrumInto copies the latest spectrum into dst, which must have Bins()
// elements.
func (a *Analyzer) SpectrumInto(dst []float64) error {
	return a.publisher.ReadInto(dst)
}

// Close tears the analyzer down. No spectrum is published after Close
// returns; Process keeps passing samples through and reads keep returning
// the last spectrum alongside ErrClosed.
func (a *Analyzer) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.publisher.Close()
	applog.Debugf("Analysis: Analyzer closed after %d spectra (%d dropped)", a.publisher.Sequence(), a.dropped.Load())
	return nil
}

// Publishes returns how many spectra have been published.
func (a *Analyzer) Publishes() uint64 { return a.publisher.Sequence() }

// Dropped returns how many transforms failed and were discarded.
func (a *Analyzer) Dropped() uint64 { return a.dropped.Load() }

// FFTLength returns the transform length.
func (a *Analyzer) FFTLength() int { return a.fftLength }

// Bins returns the spectrum length, half the transform length.
func (a *Analyzer) Bins() int { return a.fftLength / 2 }

func (a *Analyzer) Channels() int { return a.channels }

func (a *Analyzer) SampleRate() int { return a.sampleRate }

func (a *Analyzer) Window() dsp.WindowFunc { return a.windowFn }

// BinFrequency returns the centre frequency in Hz of spectrum bin i, or 0 when
// i is out of range.
func (a *Analyzer) BinFrequency(i int) float64 {
	if i < 0 || i >= a.Bins() {
		return 0
	}
	return dsp.BinFrequency(i, a.fftLength, float64(a.sampleRate))
}
