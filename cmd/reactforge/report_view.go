package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/events"
	"github.com/reactforge/reactforge/internal/orchestrator"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleSkip    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// formatEvent renders one build event as a log line for verbose headless runs.
func formatEvent(ev events.Event) string {
	switch e := ev.(type) {
	case events.BuildStartedEvent:
		return fmt.Sprintf("[%s] run %s with %d agents", e.EventType(), e.RunID, e.Agents)
	case events.WaveStartedEvent:
		return fmt.Sprintf("[%s] wave %d/%d: %s", e.EventType(), e.Wave+1, e.TotalWaves, joinIDs(e.Members))
	case events.WaveCompletedEvent:
		return fmt.Sprintf("[%s] wave %d: %d ok, %d failed, %d blocked",
			e.EventType(), e.Wave+1, e.Succeeded, e.Failed, e.Blocked)
	case events.AgentStartedEvent:
		return fmt.Sprintf("[%s] %s", e.EventType(), e.ID)
	case events.AgentProgressEvent:
		return fmt.Sprintf("[%s] %s %d%% %s", e.EventType(), e.ID, e.Percent, e.Message)
	case events.AgentCompletedEvent:
		return fmt.Sprintf("[%s] %s", e.EventType(), e.ID)
	case events.AgentFailedEvent:
		return fmt.Sprintf("[%s] %s: %v", e.EventType(), e.ID, e.Err)
	case events.BuildCompletedEvent:
		return fmt.Sprintf("[%s] success=%t in %v", e.EventType(), e.Success, e.Duration.Round(timeRound))
	case events.BuildFailedEvent:
		return fmt.Sprintf("[%s] %v", e.EventType(), e.Err)
	default:
		return fmt.Sprintf("[%s]", ev.EventType())
	}
}

const timeRound = 10 * time.Millisecond

// renderReport renders the final build report for the terminal.
func renderReport(report *orchestrator.Report) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleHeading.Render("Build Report"))
	b.WriteString(styleDim.Render(fmt.Sprintf("  (run %s)", report.RunID)))
	b.WriteString("\n\n")

	if report.Plan != nil {
		for i, wave := range report.Plan.Waves {
			b.WriteString(styleDim.Render(fmt.Sprintf("Wave %d", i+1)))
			b.WriteString("\n")
			for _, id := range wave {
				b.WriteString("  ")
				b.WriteString(renderResultLine(id, report))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(styleDim.Render(fmt.Sprintf("Critical path: %s (estimated %v)",
			joinIDs(report.Plan.CriticalPath), report.Plan.EstimatedDuration)))
		b.WriteString("\n")
	} else {
		// Planning failed; show whatever results exist in a stable order.
		ids := make([]string, 0, len(report.Results))
		for id := range report.Results {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		for _, id := range ids {
			b.WriteString("  ")
			b.WriteString(renderResultLine(agent.ID(id), report))
			b.WriteString("\n")
		}
	}

	s := report.Summary
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Agents:   %d total, %s, %s, %s\n",
		s.TotalAgents,
		styleOK.Render(fmt.Sprintf("%d succeeded", s.SuccessfulAgents)),
		styleFail.Render(fmt.Sprintf("%d failed", s.FailedAgents)),
		styleSkip.Render(fmt.Sprintf("%d skipped", s.SkippedAgents))))
	b.WriteString(fmt.Sprintf("Files:    %d processed\n", s.FilesProcessed))
	b.WriteString(fmt.Sprintf("Issues:   %d errors, %d warnings\n", s.ErrorsFound, s.WarningsFound))
	if len(s.PublishedPackages) > 0 {
		b.WriteString(fmt.Sprintf("Published: %s\n", strings.Join(s.PublishedPackages, ", ")))
	}
	b.WriteString(fmt.Sprintf("Duration: %v\n", report.TotalDuration.Round(timeRound)))

	b.WriteString("\n")
	if report.Success {
		b.WriteString(styleOK.Render("BUILD SUCCEEDED"))
	} else {
		b.WriteString(styleFail.Render("BUILD FAILED"))
	}
	b.WriteString("\n")

	return b.String()
}

// renderResultLine renders one agent's status line within the report.
func renderResultLine(id agent.ID, report *orchestrator.Report) string {
	res, ok := report.Results[id]
	if !ok {
		return fmt.Sprintf("%s %s", styleSkip.Render("○"), styleSkip.Render(string(id)))
	}

	switch res.Status {
	case agent.StatusSuccess:
		return fmt.Sprintf("%s %-14s %v", styleOK.Render("✓"), id, res.Metrics.Duration.Round(timeRound))
	case agent.StatusBlocked:
		return fmt.Sprintf("%s %-14s %v", styleSkip.Render("⊘"), id, res.Err)
	case agent.StatusCancelled:
		return fmt.Sprintf("%s %-14s cancelled", styleFail.Render("✗"), id)
	default:
		return fmt.Sprintf("%s %-14s %v", styleFail.Render("✗"), id, res.Err)
	}
}

func joinIDs(ids []agent.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
