// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
)

// SpectrumProvider is what the meter polls. *Analyzer implements it.
type SpectrumProvider interface {
	SpectrumInto(dst []float64) error
	Bins() int
}

var _ SpectrumProvider = (*Analyzer)(nil)

// Meter is the consumer side of the pipeline: on every UI tick it reads the
// latest spectrum from the attached provider and folds it into its Bands. A
// meter outlives playback sessions; each new session Attaches its analyzer.
type Meter struct {
	mu        sync.Mutex
	provider  SpectrumProvider
	bands     *Bands
	scratch   []float64
	ticks     uint64
	fallbacks uint64
}

// NewMeter returns a meter with bandCount bands and no provider attached.
func NewMeter(bandCount int) *Meter {
	return &Meter{bands: NewBands(bandCount)}
}

// Attach makes p the spectrum source for subsequent ticks.
func (m *Meter) Attach(p SpectrumProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.provider = p
	if p != nil && len(m.scratch) != p.Bins() {
		m.scratch = make([]float64, p.Bins())
	}
}

// Detach drops the current provider. Ticks decay until a new one is attached.
func (m *Meter) Detach() {
	m.mu.Lock()
	m.provider = nil
	m.mu.Unlock()
}

// Tick runs one refresh: update from the provider's spectrum when it can be
// read, decay otherwise. It returns a copy of the resulting band values and
// never fails.
func (m *Meter) Tick() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticks++
	if m.provider == nil {
		m.bands.Decay()
		return m.bands.Values()
	}
	if err := m.readSpectrum(); err != nil {
		m.fallbacks++
		m.bands.Decay()
		return m.bands.Values()
	}
	m.bands.Update(m.scratch)
	return m.bands.Values()
}

// readSpectrum turns a provider panic into an error so a provider torn down
// mid-read degrades the same way as one that reports a failure.
func (m *Meter) readSpectrum() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis: spectrum read panicked: %v", r)
		}
	}()
	return m.provider.SpectrumInto(m.scratch)
}

// Reset zeroes the band values, keeping the attached provider.
func (m *Meter) Reset() {
	m.mu.Lock()
	m.bands.Reset()
	m.mu.Unlock()
}

// Values returns the current band values without ticking.
func (m *Meter) Values() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bands.Values()
}

// BandCount returns the number of bands.
func (m *Meter) BandCount() int {
	return m.bands.Len()
}

// Stats returns the number of ticks and how many of them fell back to decay.
func (m *Meter) Stats() (ticks, fallbacks uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks, m.fallbacks
}
