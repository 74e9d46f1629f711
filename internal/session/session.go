// SPDX-License-Identifier: MIT

// Package session ties one playback to the long-lived band meter: it wraps
// the source in an analyzer tap, hands the tap to an output and attaches the
// analyzer to the meter for as long as the playback runs.
package session

import (
	"errors"
	"fmt"
	"sync"

	"spectra/internal/analysis"
	"spectra/internal/config"
	"spectra/internal/dsp"
	applog "spectra/internal/log"
	"spectra/internal/source"
)

// Output consumes samples from a Source until stopped or the source ends.
// *audio.Engine is the production implementation.
type Output interface {
	Start() error
	Stop() error
	Done() <-chan struct{}
}

// OutputFactory builds the output for a session's tapped source.
type OutputFactory func(src analysis.Source) (Output, error)

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Session is a single playback.
type Session struct {
	src    source.Source
	tap    *analysis.Tap
	meter  *analysis.Meter
	output Output

	mu    sync.Mutex
	state state
}

// New builds the analyzer for src's format and the output that will play it.
// Configuration errors surface here, before anything is started.
func New(src source.Source, meter *analysis.Meter, cfg config.AnalysisConfig, newOutput OutputFactory) (*Session, error) {
	if src == nil || meter == nil || newOutput == nil {
		return nil, errors.New("session: source, meter and output factory are required")
	}

	window, err := dsp.ParseWindowFunc(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	tap, err := analysis.Wrap(src, cfg.FFTSize, analysis.WithWindow(window))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	output, err := newOutput(tap)
	if err != nil {
		tap.Analyzer().Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	return &Session{
		src:    src,
		tap:    tap,
		meter:  meter,
		output: output,
	}, nil
}

// Start attaches the analyzer to the meter and starts the output.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return errors.New("session: already started")
	}

	s.meter.Attach(s.tap.Analyzer())
	if err := s.output.Start(); err != nil {
		s.meter.Detach()
		return fmt.Errorf("session: %w", err)
	}
	s.state = stateRunning
	applog.Infof("Session: Started (FFT %d, %d bands)", s.tap.Analyzer().FFTLength(), s.meter.BandCount())
	return nil
}

// Stop ends the playback: the output stops, the analyzer is torn down so no
// further spectra are published, and the meter is detached and reset to zero.
// It is safe to call more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateStopped {
		return nil
	}
	wasRunning := s.state == stateRunning
	s.state = stateStopped

	var errs []error
	if wasRunning {
		if err := s.output.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	a := s.tap.Analyzer()
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	s.meter.Detach()
	s.meter.Reset()
	if err := s.src.Close(); err != nil {
		errs = append(errs, fmt.Errorf("session: closing source: %w", err))
	}

	ticks, fallbacks := s.meter.Stats()
	applog.Infof("Session: Stopped (%d spectra, %d dropped, %d ticks, %d fallbacks)",
		a.Publishes(), a.Dropped(), ticks, fallbacks)
	return errors.Join(errs...)
}

// Done is closed when the output has played the whole source.
func (s *Session) Done() <-chan struct{} {
	return s.output.Done()
}

// Analyzer returns the session's analyzer.
func (s *Session) Analyzer() *analysis.Analyzer {
	return s.tap.Analyzer()
}
