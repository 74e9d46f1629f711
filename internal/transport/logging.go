// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "spectra/internal/log"
)

// LoggingTransport writes frames to the debug log. It is the headless default
// when no network transport is configured, so running with --verbose shows the
// band values scrolling by.
type LoggingTransport struct {
	every uint64
	count atomic.Uint64
}

// NewLoggingTransport logs one frame out of every n (n <= 0 logs all).
func NewLoggingTransport(every int) *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	if every <= 0 {
		every = 1
	}
	return &LoggingTransport{every: uint64(every)}
}

// Send logs the frame at debug level. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if lt.count.Add(1)%lt.every != 0 {
		return nil
	}
	if f, ok := data.(Frame); ok {
		applog.Debugf("LOG_TRANSPORT: frame %d %.3f", f.Sequence, f.Bands)
		return nil
	}
	applog.Debugf("LOG_TRANSPORT: received (%T): %+v", data, data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
