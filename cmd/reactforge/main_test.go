package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/events"
	"github.com/reactforge/reactforge/internal/orchestrator"
	"github.com/reactforge/reactforge/internal/planner"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   events.Event
		want []string
	}{
		{
			"build started",
			events.BuildStartedEvent{RunID: "abc", Agents: 10},
			[]string{"BUILD_STARTED", "abc", "10 agents"},
		},
		{
			"wave started",
			events.WaveStartedEvent{Wave: 0, TotalWaves: 5, Members: []agent.ID{agent.TypeCheck, agent.Lint}},
			[]string{"WAVE_STARTED", "1/5", "typecheck", "lint"},
		},
		{
			"agent failed",
			events.AgentFailedEvent{ID: agent.Bundle, Err: errors.New("vite exploded")},
			[]string{"AGENT_FAILED", "bundle", "vite exploded"},
		},
		{
			"build completed",
			events.BuildCompletedEvent{Success: true, Duration: 3 * time.Second},
			[]string{"BUILD_COMPLETED", "success=true", "3s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatEvent(tt.ev)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("formatEvent = %q, missing %q", got, want)
				}
			}
		})
	}
}

func sampleReport(success bool) *orchestrator.Report {
	results := map[agent.ID]agent.Result{
		agent.TypeCheck: {AgentID: agent.TypeCheck, Success: true, Status: agent.StatusSuccess},
		agent.Test: {
			AgentID: agent.Test,
			Success: success,
			Status:  agent.StatusSuccess,
		},
	}
	if !success {
		results[agent.Test] = agent.Result{
			AgentID: agent.Test,
			Status:  agent.StatusFailed,
			Err:     errors.New("2 suites failed"),
		}
	}

	succ := 2
	failed := 0
	if !success {
		succ, failed = 1, 1
	}

	return &orchestrator.Report{
		RunID:   "run-1",
		Success: success,
		Plan: &planner.Plan{
			Waves:        [][]agent.ID{{agent.TypeCheck}, {agent.Test}},
			CriticalPath: []agent.ID{agent.TypeCheck, agent.Test},
		},
		Results:       results,
		TotalDuration: 1500 * time.Millisecond,
		Summary: orchestrator.Summary{
			TotalAgents:      2,
			SuccessfulAgents: succ,
			FailedAgents:     failed,
		},
	}
}

func TestRenderReportSuccess(t *testing.T) {
	out := renderReport(sampleReport(true))

	for _, want := range []string{"Build Report", "run-1", "typecheck", "test", "2 succeeded", "BUILD SUCCEEDED"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReportFailure(t *testing.T) {
	out := renderReport(sampleReport(false))

	for _, want := range []string{"1 failed", "2 suites failed", "BUILD FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "BUILD SUCCEEDED") {
		t.Error("failed report rendered as succeeded")
	}
}

func TestRenderReportWithoutPlan(t *testing.T) {
	report := sampleReport(false)
	report.Plan = nil

	out := renderReport(report)
	if !strings.Contains(out, "typecheck") {
		t.Errorf("planless report omits results:\n%s", out)
	}
}

func TestRenderReportListsPublishedPackages(t *testing.T) {
	report := sampleReport(true)
	report.Summary.PublishedPackages = []string{"app", "ui-kit"}

	out := renderReport(report)
	if !strings.Contains(out, "app, ui-kit") {
		t.Errorf("report missing published packages:\n%s", out)
	}
}
