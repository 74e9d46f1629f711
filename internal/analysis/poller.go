// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	applog "spectra/internal/log"
	"spectra/internal/transport"
)

// DefaultRefreshInterval is the UI refresh period.
const DefaultRefreshInterval = 30 * time.Millisecond

// Poller drives a Meter on a fixed interval from its own goroutine and sends
// each resulting frame to a transport. It is the only caller of Meter.Tick in
// a running program, so the smoothing advances exactly once per refresh no
// matter how many sinks are attached.
type Poller struct {
	meter    *Meter
	sink     transport.Transport
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	seq atomic.Uint64
}

// NewPoller returns a stopped poller. An interval <= 0 selects
// DefaultRefreshInterval.
func NewPoller(meter *Meter, sink transport.Transport, interval time.Duration) (*Poller, error) {
	if meter == nil {
		return nil, fmt.Errorf("Poller: meter cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("Poller: transport cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
		applog.Warnf("Poller: Invalid interval provided, defaulting to %s", interval)
	}
	return &Poller{meter: meter, sink: sink, interval: interval}, nil
}

// Start launches the poll goroutine. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Poller: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Poller: Started (Interval: %s, Bands: %d)", p.interval, p.meter.BandCount())
		for {
			select {
			case <-ticker.C:
				p.Poll()
			case <-doneChan:
				applog.Debugf("Poller: Received stop signal.")
				return
			}
		}
	}()
}

// Poll runs a single refresh and sends the frame. Send errors are logged and
// otherwise ignored; a sink that falls over must not stop the display. Poll
// may be called while the poller is running; every frame gets its own
// sequence number.
func (p *Poller) Poll() transport.Frame {
	frame := transport.Frame{
		Sequence:  p.seq.Add(1),
		Timestamp: time.Now(),
		Bands:     p.meter.Tick(),
	}
	if err := p.sink.Send(frame); err != nil {
		applog.Debugf("Poller: Send failed for frame %d: %v", frame.Sequence, err)
	}
	return frame
}

// Stop signals the poll goroutine and waits for it to exit. It is safe to call
// more than once; the poller can be started again afterwards.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("Poller: Stopped.")
	return nil
}

// Close stops the poller. The transport is left open; its owner closes it.
func (p *Poller) Close() error {
	return p.Stop()
}
