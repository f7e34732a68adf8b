package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reactforge/reactforge/internal/config"
	"github.com/reactforge/reactforge/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneAgents PaneID = iota
	PaneWaves
)

// Model is the root Bubble Tea model for the build dashboard.
type Model struct {
	agentPane    AgentPaneModel
	wavePane     WavePaneModel
	settingsPane SettingsPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	width        int
	height       int
	quitting     bool
	showSettings bool
}

// New creates the dashboard model and bridges the bus into the Bubble Tea
// event loop. The bus delivers synchronously; the bridge channel is buffered
// so a slow redraw stalls the display, never the build.
func New(bus *events.Bus, cfg *config.BuildConfig, globalPath, projectPath string) Model {
	sub := make(chan events.Event, 512)
	bus.OnEvent(func(ev events.Event) {
		select {
		case sub <- ev:
		default:
			// Display-only channel; dropping here loses a frame, not data.
		}
	})

	return Model{
		agentPane:    NewAgentPaneModel(),
		wavePane:     NewWavePaneModel(),
		settingsPane: NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:  PaneAgents,
		eventSub:     sub,
	}
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next build event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bridge closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Modal settings: route all keys to the form while it is open.
		if m.showSettings {
			switch msg.String() {
			case KeySettings, "esc":
				m.showSettings = false
				m.settingsPane.SetVisible(false)
			default:
				var cmd tea.Cmd
				m.settingsPane, cmd = m.settingsPane.Update(msg)
				cmds = append(cmds, cmd)

				if !m.settingsPane.IsVisible() {
					m.showSettings = false
				}
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 2
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 1) % 2
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneAgents
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneWaves
			m.updateFocusStates()

		default:
			switch m.focusedPane {
			case PaneAgents:
				var cmd tea.Cmd
				m.agentPane, cmd = m.agentPane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneWaves:
				var cmd tea.Cmd
				m.wavePane, cmd = m.wavePane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case events.AgentStartedEvent, events.AgentProgressEvent, events.AgentCompletedEvent, events.AgentFailedEvent:
		var cmd tea.Cmd
		m.agentPane, cmd = m.agentPane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.BuildStartedEvent, events.WaveStartedEvent, events.WaveCompletedEvent,
		events.BuildCompletedEvent, events.BuildFailedEvent:
		var cmd tea.Cmd
		m.wavePane, cmd = m.wavePane.Update(msg)
		cmds = append(cmds, cmd)
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	leftPane := m.agentPane.View()
	rightPane := m.wavePane.View()

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	helpBar := HelpView()

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, helpBar)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 65) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1

	m.agentPane.SetSize(leftWidth, availableHeight)
	m.wavePane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.agentPane.SetFocused(m.focusedPane == PaneAgents)
	m.wavePane.SetFocused(m.focusedPane == PaneWaves)
}
