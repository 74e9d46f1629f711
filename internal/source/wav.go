// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"os"
	"time"

	applog "spectra/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV streams PCM samples out of a .wav file as normalized float32.
type WAV struct {
	file     *os.File
	dec      *wav.Decoder
	format   *audio.Format
	bitDepth int
	scale    float32
	duration time.Duration

	buf *audio.IntBuffer // reused between reads
}

// OpenWAV opens and validates path and positions the decoder at the start of
// the PCM data.
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	w, err := newWAV(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	applog.Infof("Source: Opened %s (%d Hz, %d channels, %d-bit, %s)",
		path, w.format.SampleRate, w.format.NumChannels, w.bitDepth, w.duration.Round(time.Millisecond))
	return w, nil
}

func newWAV(f *os.File) (*WAV, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	duration, _ := dec.Duration()
	if err := dec.Rewind(); err != nil {
		return nil, err
	}

	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported audio format %d, only integer PCM is supported", dec.WavAudioFormat)
	}

	return &WAV{
		file:     f,
		dec:      dec,
		format:   formatOf(int(dec.NumChans), int(dec.SampleRate)),
		bitDepth: bitDepth,
		scale:    1 / float32(audio.IntMaxSignedValue(bitDepth)+1),
		duration: duration,
		buf:      &audio.IntBuffer{},
	}, nil
}

// Read decodes up to len(dst) samples. It returns io.EOF once the PCM data is
// exhausted.
func (w *WAV) Read(dst []float32) (int, error) {
	if cap(w.buf.Data) < len(dst) {
		w.buf.Data = make([]int, len(dst))
	}
	w.buf.Data = w.buf.Data[:len(dst)]

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil {
		return 0, fmt.Errorf("source: decoding PCM: %w", err)
	}
	if n <= 0 {
		return 0, io.EOF
	}

	if w.bitDepth == 8 {
		// 8-bit WAV is unsigned with its midpoint at 128.
		for i, v := range w.buf.Data[:n] {
			dst[i] = float32(v-128) / 128
		}
	} else {
		for i, v := range w.buf.Data[:n] {
			dst[i] = float32(v) * w.scale
		}
	}
	return n, nil
}

// Format returns the file's channel count and sample rate.
func (w *WAV) Format() *audio.Format {
	return w.format
}

// Duration returns the playing time of the file.
func (w *WAV) Duration() time.Duration {
	return w.duration
}

// Close closes the underlying file.
func (w *WAV) Close() error {
	return w.file.Close()
}
