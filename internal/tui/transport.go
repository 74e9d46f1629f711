// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"

	"spectra/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
)

// messageSender is the part of *tea.Program the transport needs.
type messageSender interface {
	Send(msg tea.Msg)
}

// Transport forwards band frames into a running Bubble Tea program so the
// spectrum view is driven by the same poller as every other sink.
type Transport struct {
	program messageSender
}

// NewTransport wraps p, normally a *tea.Program.
func NewTransport(p messageSender) *Transport {
	return &Transport{program: p}
}

// Send delivers a transport.Frame to the program. Once the program has
// exited Send returns immediately.
func (t *Transport) Send(data any) error {
	switch f := data.(type) {
	case transport.Frame:
		t.program.Send(FrameMsg(f))
	case *transport.Frame:
		if f == nil {
			return fmt.Errorf("tui: nil frame")
		}
		t.program.Send(FrameMsg(*f))
	default:
		return fmt.Errorf("tui: unsupported payload %T", data)
	}
	return nil
}

// Close is a no-op; the program is owned by the caller.
func (t *Transport) Close() error {
	return nil
}

var _ transport.Transport = (*Transport)(nil)
