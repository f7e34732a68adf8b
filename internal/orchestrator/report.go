package orchestrator

import (
	"time"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/planner"
)

// Summary is the reduced view of all agent results.
// SuccessfulAgents + FailedAgents + SkippedAgents always equals TotalAgents:
// skipped covers blocked agents and agents whose wave never started.
type Summary struct {
	TotalAgents       int
	SuccessfulAgents  int
	FailedAgents      int
	SkippedAgents     int
	ErrorsFound       int
	WarningsFound     int
	FilesProcessed    int
	PublishedPackages []string
}

// Report is the final (or partial, on abort) outcome of a build run.
type Report struct {
	RunID         string
	Success       bool
	Plan          *planner.Plan
	Results       map[agent.ID]agent.Result
	TotalDuration time.Duration
	Summary       Summary
}

// buildReport reduces whatever results exist into a report. Safe to call
// with a nil plan (planning failure) or a partially filled results map.
func (o *Orchestrator) buildReport(plan *planner.Plan) *Report {
	o.mu.Lock()
	results := make(map[agent.ID]agent.Result, len(o.results))
	for id, res := range o.results {
		results[id] = res
	}
	o.mu.Unlock()

	summary := Summary{TotalAgents: len(o.agents)}
	for _, res := range results {
		switch res.Status {
		case agent.StatusSuccess:
			summary.SuccessfulAgents++
		case agent.StatusFailed, agent.StatusCancelled:
			summary.FailedAgents++
		}
		summary.ErrorsFound += res.Metrics.ErrorsFound
		summary.WarningsFound += res.Metrics.WarningsFound
		summary.FilesProcessed += res.Metrics.FilesProcessed
	}
	// Blocked results and agents that never ran both count as skipped.
	summary.SkippedAgents = summary.TotalAgents - summary.SuccessfulAgents - summary.FailedAgents

	if pub, ok := results[agent.Publish]; ok && pub.Success {
		if names, ok := pub.Data["publishedPackages"].([]string); ok {
			summary.PublishedPackages = names
		}
	}

	return &Report{
		RunID:   o.runID,
		Success: summary.FailedAgents == 0 && summary.SuccessfulAgents == summary.TotalAgents,
		Plan:    plan,
		Results: results,
		Summary: summary,
	}
}
