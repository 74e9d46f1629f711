// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"spectra/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	minBar       = 1 // rows drawn for a band at the floor
	chromeHeight = 4 // title, blank, blank, help
	defaultRows  = 16
	defaultWidth = 80
)

var (
	lowBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	midBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C547"))
	highBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0465A"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8C547")).Bold(true)
)

// FrameMsg delivers one refresh worth of band values to the model.
type FrameMsg transport.Frame

type keyMap struct {
	Quit  key.Binding
	Pause key.Binding
	Reset key.Binding
}

var keys = keyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Pause: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause")),
	Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
}

// SpectrumModel renders band values as vertical bars.
type SpectrumModel struct {
	title   string
	onReset func()

	bands  []float64
	seq    uint64
	paused bool
	width  int
	height int
}

// NewSpectrumModel returns a model for bandCount bars. onReset, if not nil,
// is called when the user presses r.
func NewSpectrumModel(title string, bandCount int, onReset func()) SpectrumModel {
	return SpectrumModel{
		title:   title,
		onReset: onReset,
		bands:   make([]float64, bandCount),
		width:   defaultWidth,
		height:  defaultRows + chromeHeight,
	}
}

// Init implements tea.Model.
func (m SpectrumModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SpectrumModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case FrameMsg:
		if m.paused {
			return m, nil
		}
		if len(msg.Bands) != len(m.bands) {
			m.bands = make([]float64, len(msg.Bands))
		}
		copy(m.bands, msg.Bands)
		m.seq = msg.Sequence

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, keys.Reset):
			clear(m.bands)
			if m.onReset != nil {
				m.onReset()
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m SpectrumModel) View() string {
	var sb strings.Builder

	status := fmt.Sprintf("frame %d", m.seq)
	if m.paused {
		status = pausedStyle.Render("paused")
	}
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString(" ")
	sb.WriteString(infoStyle.Render(status))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderBars())
	sb.WriteString("\n\n")
	sb.WriteString(infoStyle.Render("space: Pause • r: Reset • q: Quit"))
	return sb.String()
}

// barHeight converts a band value in [0,1] to a row count.
func barHeight(v float64, rows int) int {
	return max(minBar, int(math.Round(v*float64(rows))))
}

func (m SpectrumModel) renderBars() string {
	rows := max(1, m.height-chromeHeight)
	n := len(m.bands)
	if n == 0 {
		return ""
	}
	barWidth := max(1, (m.width-n+1)/n)
	block := strings.Repeat("█", barWidth)
	blank := strings.Repeat(" ", barWidth)

	heights := make([]int, n)
	for i, v := range m.bands {
		heights[i] = barHeight(v, rows)
	}

	lines := make([]string, rows)
	for r := rows; r >= 1; r-- {
		style := lowBarStyle
		switch frac := float64(r) / float64(rows); {
		case frac > 0.85:
			style = highBarStyle
		case frac > 0.6:
			style = midBarStyle
		}

		var line strings.Builder
		for i, h := range heights {
			if i > 0 {
				line.WriteByte(' ')
			}
			if h >= r {
				line.WriteString(block)
			} else {
				line.WriteString(blank)
			}
		}
		lines[rows-r] = style.Render(line.String())
	}
	return strings.Join(lines, "\n")
}

// Bands returns a copy of the values currently displayed.
func (m SpectrumModel) Bands() []float64 {
	out := make([]float64, len(m.bands))
	copy(out, m.bands)
	return out
}

// Paused reports whether the display is frozen.
func (m SpectrumModel) Paused() bool {
	return m.paused
}
