// SPDX-License-Identifier: MIT

// Package transport carries band frames from the meter to wherever they are
// displayed or consumed: the terminal UI, WebSocket clients, a UDP listener or
// the log. Every implementation must tolerate being called from the poller
// goroutine while Close runs on another.
package transport

import (
	"errors"
	"time"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not block the caller for
// long; dropping a frame is always preferable to stalling the poller.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one refresh worth of visualization output.
type Frame struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Bands     []float64 `json:"bands"`
}

// Fanout sends every frame to each of its transports.
type Fanout []Transport

var _ Transport = Fanout(nil)

// Send delivers data to every transport and joins their errors.
func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
