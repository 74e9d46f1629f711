// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
)

func formatOf(channels, sampleRate int) *audio.Format {
	return &audio.Format{NumChannels: channels, SampleRate: sampleRate}
}

// Tone generates a sine wave on every channel. With a non-zero frame limit it
// ends with io.EOF once that many frames have been produced.
type Tone struct {
	format    *audio.Format
	frequency float64
	amplitude float64
	limit     int64 // frames, 0 means unlimited
	frame     int64
}

// NewTone returns a tone source. frames <= 0 means it never ends.
func NewTone(format *audio.Format, frequency, amplitude float64, frames int64) (*Tone, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	if frequency <= 0 {
		return nil, fmt.Errorf("source: tone frequency must be positive, got %g", frequency)
	}
	return &Tone{
		format:    format,
		frequency: frequency,
		amplitude: amplitude,
		limit:     max(0, frames),
	}, nil
}

// Read fills dst with whole frames. The phase is derived from the absolute
// frame index so it never drifts across calls.
func (t *Tone) Read(dst []float32) (int, error) {
	ch := t.format.NumChannels
	frames := int64(len(dst) / ch)
	if t.limit > 0 {
		frames = min(frames, t.limit-t.frame)
		if frames <= 0 {
			return 0, io.EOF
		}
	}

	step := 2 * math.Pi * t.frequency / float64(t.format.SampleRate)
	for i := int64(0); i < frames; i++ {
		v := float32(t.amplitude * math.Sin(step*float64(t.frame+i)))
		base := i * int64(ch)
		for c := int64(0); c < int64(ch); c++ {
			dst[base+c] = v
		}
	}
	t.frame += frames
	return int(frames) * ch, nil
}

// Format returns the tone's channel count and sample rate.
func (t *Tone) Format() *audio.Format {
	return t.format
}

// Close is a no-op.
func (t *Tone) Close() error {
	return nil
}

// Silence produces zeros, optionally for a limited number of frames.
type Silence struct {
	format *audio.Format
	limit  int64
	frame  int64
}

// NewSilence returns a silent source. frames <= 0 means it never ends.
func NewSilence(format *audio.Format, frames int64) (*Silence, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	return &Silence{format: format, limit: max(0, frames)}, nil
}

// Read zero-fills whole frames of dst.
func (s *Silence) Read(dst []float32) (int, error) {
	ch := s.format.NumChannels
	frames := int64(len(dst) / ch)
	if s.limit > 0 {
		frames = min(frames, s.limit-s.frame)
		if frames <= 0 {
			return 0, io.EOF
		}
	}
	n := int(frames) * ch
	clear(dst[:n])
	s.frame += frames
	return n, nil
}

// Format returns the configured format.
func (s *Silence) Format() *audio.Format {
	return s.format
}

// Close is a no-op.
func (s *Silence) Close() error {
	return nil
}

func checkFormat(format *audio.Format) error {
	if format == nil {
		return errors.New("source: format is required")
	}
	if format.NumChannels <= 0 || format.SampleRate <= 0 {
		return fmt.Errorf("source: invalid format (%d channels, %d Hz)", format.NumChannels, format.SampleRate)
	}
	return nil
}
