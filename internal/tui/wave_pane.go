package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reactforge/reactforge/internal/events"
)

// WavePaneModel shows build-level progress: the current wave, per-status
// counts, and an overall progress bar.
type WavePaneModel struct {
	totalAgents int
	totalWaves  int
	currentWave int
	succeeded   int
	failed      int
	blocked     int
	running     int
	done        bool
	buildOK     bool
	width       int
	height      int
	focused     bool
}

// NewWavePaneModel creates a new wave pane model.
func NewWavePaneModel() WavePaneModel {
	return WavePaneModel{}
}

// Update handles messages for the wave pane.
func (m WavePaneModel) Update(msg tea.Msg) (WavePaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.BuildStartedEvent:
		m.totalAgents = msg.Agents

	case events.WaveStartedEvent:
		m.currentWave = msg.Wave + 1
		m.totalWaves = msg.TotalWaves
		m.running = len(msg.Members)

	case events.WaveCompletedEvent:
		m.succeeded += msg.Succeeded
		m.failed += msg.Failed
		m.blocked += msg.Blocked
		m.running = 0

	case events.BuildCompletedEvent:
		m.done = true
		m.buildOK = msg.Success

	case events.BuildFailedEvent:
		m.done = true
		m.buildOK = false
	}

	return m, nil
}

// View renders the wave pane.
func (m WavePaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Build Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if m.totalWaves > 0 {
		b.WriteString(fmt.Sprintf("Wave:      %d/%d\n", m.currentWave, m.totalWaves))
	}
	b.WriteString(fmt.Sprintf("Agents:    %d\n", m.totalAgents))
	b.WriteString(fmt.Sprintf("Succeeded: %s\n", StyleStatusSuccess.Render(fmt.Sprintf("%d", m.succeeded))))
	b.WriteString(fmt.Sprintf("Failed:    %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))))
	b.WriteString(fmt.Sprintf("Blocked:   %s\n", StyleStatusBlocked.Render(fmt.Sprintf("%d", m.blocked))))
	b.WriteString(fmt.Sprintf("Running:   %s\n", StyleStatusRunning.Render(fmt.Sprintf("%d", m.running))))
	b.WriteString("\n")

	if m.totalAgents > 0 {
		settled := m.succeeded + m.failed + m.blocked
		barWidth := minInt(m.width-4, 40)
		okWidth := (m.succeeded * barWidth) / m.totalAgents
		failWidth := ((m.failed + m.blocked) * barWidth) / m.totalAgents
		restWidth := barWidth - okWidth - failWidth

		bar := StyleStatusSuccess.Render(strings.Repeat("=", maxInt(0, okWidth)))
		bar += StyleStatusFailed.Render(strings.Repeat("!", maxInt(0, failWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", maxInt(0, restWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, settled, m.totalAgents))
	}

	if m.done {
		b.WriteString("\n")
		if m.buildOK {
			b.WriteString(StyleStatusSuccess.Render("BUILD SUCCEEDED"))
		} else {
			b.WriteString(StyleStatusFailed.Render("BUILD FAILED"))
		}
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *WavePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *WavePaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
