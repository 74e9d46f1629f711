// SPDX-License-Identifier: MIT
/*
Package audio plays a pull-based sample source through a PortAudio output
stream.

Thread Safety:
  - The device callback is the only reader of the source
  - Counters are atomics so they can be read while the stream runs
  - Buffers are owned by PortAudio; the callback never allocates
*/
package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"spectra/internal/analysis"
	"spectra/internal/config"
	applog "spectra/internal/log"

	"github.com/gordonklaus/portaudio"
)

type stream interface {
	Start() error
	Stop() error
	Close() error
}

type streamCallback = func(out []float32, info portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags)

// openStream is replaced in tests.
var openStream = func(params portaudio.StreamParameters, cb streamCallback) (stream, error) {
	return portaudio.OpenStream(params, cb)
}

// Stats is a snapshot of the engine's counters.
type Stats struct {
	Callbacks  uint64
	Frames     uint64
	Underflows uint64
	ReadErrors uint64
}

// Engine feeds an output device from a Source. The source is read on the
// device callback; once it reports io.EOF (or fails) the rest of the stream
// is silence and Done is closed.
type Engine struct {
	src             analysis.Source
	channels        int
	sampleRate      int
	framesPerBuffer int
	device          *portaudio.DeviceInfo
	latency         time.Duration

	mu     sync.Mutex // Serializes Start/Stop.
	stream stream

	done     chan struct{}
	doneOnce sync.Once
	finished atomic.Bool
	lastErr  atomic.Pointer[error]

	callbacks  atomic.Uint64
	frames     atomic.Uint64
	underflows atomic.Uint64
	readErrors atomic.Uint64
}

// NewEngine resolves the configured output device and prepares an engine for
// src. The stream is opened by Start.
func NewEngine(src analysis.Source, cfg config.AudioConfig) (*Engine, error) {
	device, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}
	return newEngine(src, device, cfg)
}

func newEngine(src analysis.Source, device *portaudio.DeviceInfo, cfg config.AudioConfig) (*Engine, error) {
	if src == nil {
		return nil, errors.New("audio: source is required")
	}
	format := src.Format()
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid source format %+v", format)
	}
	if device.MaxOutputChannels < format.NumChannels {
		return nil, fmt.Errorf("audio: device %q supports %d output channels, source has %d",
			device.Name, device.MaxOutputChannels, format.NumChannels)
	}

	e := &Engine{
		src:             src,
		channels:        format.NumChannels,
		sampleRate:      format.SampleRate,
		framesPerBuffer: cfg.FramesPerBuffer,
		device:          device,
		done:            make(chan struct{}),
	}
	if cfg.LowLatency {
		e.latency = device.DefaultLowOutputLatency
	} else {
		e.latency = device.DefaultHighOutputLatency
	}
	return e, nil
}

// Start opens and starts the output stream.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream != nil {
		return errors.New("audio: engine already started")
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   e.device,
			Channels: e.channels,
			Latency:  e.latency,
		},
		FramesPerBuffer: e.framesPerBuffer,
		SampleRate:      float64(e.sampleRate),
	}

	s, err := openStream(params, e.callback)
	if err != nil {
		return fmt.Errorf("audio: opening output stream on %q: %w", e.device.Name, err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return fmt.Errorf("audio: starting output stream: %w", err)
	}
	e.stream = s

	applog.Infof("Engine: Playing on %q (%d Hz, %d channels, %d frames/buffer, latency %s)",
		e.device.Name, e.sampleRate, e.channels, e.framesPerBuffer, e.latency)
	return nil
}

// Stop stops and closes the stream. It is safe to call when not started.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stream == nil {
		return nil
	}
	s := e.stream
	e.stream = nil

	var errs []error
	if err := s.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("audio: stopping stream: %w", err))
	}
	if err := s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("audio: closing stream: %w", err))
	}

	stats := e.Stats()
	applog.Infof("Engine: Stopped after %d frames (%d underflows, %d read errors)",
		stats.Frames, stats.Underflows, stats.ReadErrors)
	return errors.Join(errs...)
}

// Close is Stop, for use as an io.Closer.
func (e *Engine) Close() error {
	return e.Stop()
}

// Done is closed once the source is exhausted or has failed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err returns the error that ended playback, or nil for a clean io.EOF.
func (e *Engine) Err() error {
	if p := e.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Callbacks:  e.callbacks.Load(),
		Frames:     e.frames.Load(),
		Underflows: e.underflows.Load(),
		ReadErrors: e.readErrors.Load(),
	}
}

func (e *Engine) callback(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.OutputUnderflow != 0 {
		e.underflows.Add(1)
	}
	e.fill(out)
}

// fill is the body of the device callback.
// Performance Critical (Hot Path):
// - No allocations
// - Never blocks on anything but the source
func (e *Engine) fill(out []float32) {
	e.callbacks.Add(1)

	filled := 0
	for !e.finished.Load() && filled < len(out) {
		n, err := e.src.Read(out[filled:])
		filled += max(0, n)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.readErrors.Add(1)
				e.lastErr.Store(&err)
			}
			e.finish()
			break
		}
		if n <= 0 {
			// A source that returns nothing without an error has stalled.
			e.finish()
			break
		}
	}

	clear(out[filled:])
	e.frames.Add(uint64(filled / e.channels))
}

func (e *Engine) finish() {
	e.doneOnce.Do(func() {
		e.finished.Store(true)
		close(e.done)
	})
}
