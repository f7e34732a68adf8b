package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/events"
)

// AgentState tracks one roster agent's display state.
type AgentState struct {
	ID        agent.ID
	Name      string
	Status    string // "running", "success", "failed", "blocked"
	Percent   int
	Output    []string
	StartTime time.Time
	Duration  time.Duration
}

// AgentPaneModel is the agent list plus the selected agent's output viewport.
type AgentPaneModel struct {
	agents      map[agent.ID]*AgentState
	agentOrder  []agent.ID // insertion order for display
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewAgentPaneModel creates a new agent pane model.
func NewAgentPaneModel() AgentPaneModel {
	vp := viewport.New(0, 0)
	return AgentPaneModel{
		agents:   make(map[agent.ID]*AgentState),
		viewport: vp,
	}
}

// Update handles messages for the agent pane.
func (m AgentPaneModel) Update(msg tea.Msg) (AgentPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.agentOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.AgentStartedEvent:
		if _, exists := m.agents[msg.ID]; !exists {
			m.agents[msg.ID] = &AgentState{
				ID:        msg.ID,
				Name:      msg.Name,
				Status:    "running",
				Output:    make([]string, 0),
				StartTime: msg.Timestamp,
			}
			m.agentOrder = append(m.agentOrder, msg.ID)
			if len(m.agentOrder) == 1 {
				m.selectedIdx = 0
				m.updateViewportContent()
			}
		}

	case events.AgentProgressEvent:
		if st, exists := m.agents[msg.ID]; exists {
			st.Percent = msg.Percent
			st.Output = append(st.Output, fmt.Sprintf("%3d%% %s", msg.Percent, msg.Message))
			if m.selectedID() == msg.ID {
				m.updateViewportContent()
			}
		}

	case events.AgentCompletedEvent:
		if st, exists := m.agents[msg.ID]; exists {
			st.Status = "success"
			st.Percent = 100
			if msg.Result != nil {
				st.Duration = msg.Result.Metrics.Duration
			}
			st.Output = append(st.Output, fmt.Sprintf("\n[Completed in %v]", st.Duration))
			if m.selectedID() == msg.ID {
				m.updateViewportContent()
			}
		}

	case events.AgentFailedEvent:
		if st, exists := m.agents[msg.ID]; exists {
			st.Status = "failed"
			st.Output = append(st.Output, fmt.Sprintf("\n[Failed: %v]", msg.Err))
			if m.selectedID() == msg.ID {
				m.updateViewportContent()
			}
		}
	}

	return m, cmd
}

// MarkBlocked flags an agent that was gated off by a failed dependency.
// Blocked agents never emit started events, so the pane learns about them
// from the wave summary instead.
func (m *AgentPaneModel) MarkBlocked(id agent.ID) {
	if _, exists := m.agents[id]; exists {
		return
	}
	m.agents[id] = &AgentState{ID: id, Name: string(id), Status: "blocked"}
	m.agentOrder = append(m.agentOrder, id)
}

// View renders the agent pane.
func (m AgentPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 28
	viewportWidth := m.width - listWidth - 4

	listContent := m.renderAgentList(listWidth)
	viewportContent := m.viewport.View()

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listContent,
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(viewportContent),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderAgentList renders the agent list column.
func (m AgentPaneModel) renderAgentList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Agents")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", minInt(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.agentOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, id := range m.agentOrder {
			st := m.agents[id]
			icon := statusIcon(st.Status)
			name := st.Name
			if len(name) > width-10 {
				name = name[:width-13] + "..."
			}

			line := fmt.Sprintf("%s %s", icon, name)
			if st.Status == "running" {
				line += fmt.Sprintf(" %d%%", st.Percent)
			}
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// statusIcon returns a styled status indicator.
func statusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "success":
		return StyleStatusSuccess.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	case "blocked":
		return StyleStatusBlocked.Render("⊘")
	default:
		return StyleStatusPending.Render("○")
	}
}

func (m AgentPaneModel) selectedID() agent.ID {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.agentOrder) {
		return m.agentOrder[m.selectedIdx]
	}
	return ""
}

// updateViewportContent fills the viewport with the selected agent's output.
func (m *AgentPaneModel) updateViewportContent() {
	id := m.selectedID()
	if id == "" {
		m.viewport.SetContent("Waiting for agents...")
		return
	}

	st, exists := m.agents[id]
	if !exists {
		m.viewport.SetContent("Waiting for agents...")
		return
	}

	m.viewport.SetContent(strings.Join(st.Output, "\n"))
	m.viewport.GotoBottom()
}

// resizeViewport resizes the viewport based on pane dimensions.
func (m *AgentPaneModel) resizeViewport() {
	listWidth := 28
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *AgentPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *AgentPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
