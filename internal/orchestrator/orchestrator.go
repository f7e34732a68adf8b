package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/config"
	"github.com/reactforge/reactforge/internal/events"
	"github.com/reactforge/reactforge/internal/planner"
)

// Phase is the orchestrator's control-loop state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlanning
	PhaseExecuting
	PhasePublishing
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlanning:
		return "planning"
	case PhaseExecuting:
		return "executing"
	case PhasePublishing:
		return "publishing"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// State is a snapshot of the orchestrator's progress. Mutated only by the
// orchestrator's own control loop.
type State struct {
	Phase       Phase
	CurrentWave int
	TotalWaves  int
	StartTime   time.Time
	EndTime     time.Time
}

// Orchestrator executes the agent roster in dependency-respecting waves.
type Orchestrator struct {
	cfg    *config.BuildConfig
	agents map[agent.ID]agent.Agent
	bus    *events.Bus
	locks  *ArtifactLocks

	mu      sync.Mutex
	results map[agent.ID]agent.Result
	state   State
	runID   string
}

// New creates an orchestrator over the given roster. It subscribes to every
// agent's event stream at construction time and republishes each lifecycle
// event on the central bus.
func New(cfg *config.BuildConfig, roster map[agent.ID]agent.Agent, bus *events.Bus) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		agents:  roster,
		bus:     bus,
		locks:   NewArtifactLocks(),
		results: make(map[agent.ID]agent.Result),
		state:   State{Phase: PhaseIdle},
	}

	for id, a := range roster {
		name := a.Config().Name
		agentID := id
		a.Events().OnEvent(func(ev agent.Event) {
			o.republish(agentID, name, ev)
		})
	}

	return o
}

// republish converts an agent lifecycle event into a BuildEvent on the bus.
func (o *Orchestrator) republish(id agent.ID, name string, ev agent.Event) {
	switch ev.Kind {
	case agent.EventStarted:
		o.bus.Publish(events.AgentStartedEvent{ID: id, Name: name, Timestamp: ev.Timestamp})
	case agent.EventProgress:
		o.bus.Publish(events.AgentProgressEvent{ID: id, Percent: ev.Percent, Message: ev.Message, Timestamp: ev.Timestamp})
	case agent.EventCompleted:
		o.bus.Publish(events.AgentCompletedEvent{ID: id, Result: ev.Result, Timestamp: ev.Timestamp})
	case agent.EventFailed:
		o.bus.Publish(events.AgentFailedEvent{ID: id, Err: ev.Err, Timestamp: ev.Timestamp})
	}
}

// State returns a snapshot of the current orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Phase = p
}

func (o *Orchestrator) setWave(current, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.CurrentWave = current
	o.state.TotalWaves = total
}

// Run executes the full build. On success it returns the final report. On a
// failFast abort it returns the partial report together with an *AbortError
// naming the failed agents; on planning errors the report covers whatever
// results exist (none).
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.runID = uuid.NewString()

	o.mu.Lock()
	o.state = State{Phase: PhasePlanning, StartTime: time.Now()}
	o.mu.Unlock()

	o.bus.Publish(events.BuildStartedEvent{RunID: o.runID, Agents: len(o.agents), Timestamp: time.Now()})

	plan, err := planner.BuildPlan(agent.Configs(o.agents))
	if err != nil {
		return o.fail(nil, fmt.Errorf("building execution plan: %w", err))
	}

	o.setPhase(PhaseExecuting)
	o.setWave(0, len(plan.Waves))

	maxConcurrency := o.cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if !o.cfg.Parallel {
		maxConcurrency = 1
	}

	for waveIdx, wave := range plan.Waves {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o.fail(plan, fmt.Errorf("build cancelled before wave %d: %w", waveIdx, ctxErr))
		}

		o.setWave(waveIdx, len(plan.Waves))
		o.bus.Publish(events.WaveStartedEvent{
			Wave:       waveIdx,
			TotalWaves: len(plan.Waves),
			Members:    wave,
			Timestamp:  time.Now(),
		})

		o.executeWave(ctx, wave, maxConcurrency)

		succeeded, failed, blocked := o.waveCounts(wave)
		o.bus.Publish(events.WaveCompletedEvent{
			Wave:      waveIdx,
			Succeeded: succeeded,
			Failed:    failed,
			Blocked:   blocked,
			Timestamp: time.Now(),
		})

		if o.cfg.FailFast && failed > 0 {
			o.finish(PhaseFailed)
			report := o.buildReport(plan)
			report.TotalDuration = o.State().EndTime.Sub(o.State().StartTime)
			abort := &AbortError{FailedAgents: o.failedIn(wave), Report: report}
			o.bus.Publish(events.BuildFailedEvent{RunID: o.runID, Err: abort, Timestamp: time.Now()})
			return report, abort
		}
	}

	if o.cfg.PublishToNpm {
		// The publish agent already ran in its own wave; this phase is a
		// checkpoint, not additional scheduling.
		o.setPhase(PhasePublishing)
		log.Printf("publish checkpoint: npm publishing was requested for run %s", o.runID)
	}

	report := o.buildReport(plan)
	o.finish(PhaseComplete)
	report.TotalDuration = o.State().EndTime.Sub(o.State().StartTime)

	o.bus.Publish(events.BuildCompletedEvent{
		RunID:     o.runID,
		Success:   report.Success,
		Succeeded: report.Summary.SuccessfulAgents,
		Failed:    report.Summary.FailedAgents,
		Skipped:   report.Summary.SkippedAgents,
		Duration:  report.TotalDuration,
		Timestamp: time.Now(),
	})

	return report, nil
}

// executeWave runs one wave in batches of at most maxConcurrency agents.
// Batch i+1 never starts before batch i has fully settled, and results are
// inserted into the results map only between batches; the wave barrier is
// what makes the unlocked dependency reads safe.
func (o *Orchestrator) executeWave(ctx context.Context, wave []agent.ID, maxConcurrency int) {
	for start := 0; start < len(wave); start += maxConcurrency {
		end := start + maxConcurrency
		if end > len(wave) {
			end = len(wave)
		}
		batch := wave[start:end]

		outcomes := make([]agent.Result, len(batch))
		pending := make([]bool, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, id := range batch {
			if blockedRes, blocked := o.gate(id); blocked {
				// Synthetic result; the agent is never invoked.
				outcomes[i] = blockedRes
				pending[i] = true
				continue
			}

			i, id := i, id
			pending[i] = true
			g.Go(func() error {
				outcomes[i] = o.invoke(gctx, id)
				return nil
			})
		}
		// Agent failures live in their results, never in the group error.
		_ = g.Wait()

		for i, id := range batch {
			if pending[i] {
				o.recordResult(id, outcomes[i])
			}
		}
	}
}

// gate checks an agent's required dependencies against the results map.
// A missing or unsuccessful required dependency blocks the agent.
func (o *Orchestrator) gate(id agent.ID) (agent.Result, bool) {
	cfg := o.agents[id].Config()
	for _, dep := range cfg.Dependencies {
		if !dep.Required {
			continue
		}
		res, ok := o.lookupResult(dep.AgentID)
		switch {
		case !ok:
			return o.blockedResult(id, fmt.Errorf("required dependency %s did not run", dep.AgentID)), true
		case !res.Success:
			return o.blockedResult(id, fmt.Errorf("required dependency %s failed", dep.AgentID)), true
		}
	}
	return agent.Result{}, false
}

func (o *Orchestrator) blockedResult(id agent.ID, err error) agent.Result {
	log.Printf("WARNING: agent %s blocked: %v", id, err)
	return agent.Result{
		AgentID: id,
		Success: false,
		Status:  agent.StatusBlocked,
		Err:     err,
	}
}

// invoke runs a single agent, holding its artifact locks for the duration.
func (o *Orchestrator) invoke(ctx context.Context, id agent.ID) agent.Result {
	a := o.agents[id]

	artifacts := a.Config().Artifacts
	o.locks.LockAll(artifacts)
	defer o.locks.UnlockAll(artifacts)

	return a.ExecuteWithRetries(ctx)
}

// recordResult inserts an outcome into the results map, write-once per key.
func (o *Orchestrator) recordResult(id agent.ID, res agent.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.results[id]; exists {
		log.Printf("ERROR: duplicate result for agent %s discarded", id)
		return
	}
	o.results[id] = res
}

func (o *Orchestrator) lookupResult(id agent.ID) (agent.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	res, ok := o.results[id]
	return res, ok
}

func (o *Orchestrator) waveCounts(wave []agent.ID) (succeeded, failed, blocked int) {
	for _, id := range wave {
		res, ok := o.lookupResult(id)
		if !ok {
			continue
		}
		switch res.Status {
		case agent.StatusSuccess:
			succeeded++
		case agent.StatusBlocked:
			blocked++
		case agent.StatusFailed, agent.StatusCancelled:
			failed++
		}
	}
	return succeeded, failed, blocked
}

func (o *Orchestrator) failedIn(wave []agent.ID) []agent.ID {
	var failed []agent.ID
	for _, id := range wave {
		if res, ok := o.lookupResult(id); ok && (res.Status == agent.StatusFailed || res.Status == agent.StatusCancelled) {
			failed = append(failed, id)
		}
	}
	return failed
}

// fail finalizes a run that died during planning or between waves.
func (o *Orchestrator) fail(plan *planner.Plan, err error) (*Report, error) {
	report := o.buildReport(plan)
	o.finish(PhaseFailed)
	report.TotalDuration = o.State().EndTime.Sub(o.State().StartTime)
	o.bus.Publish(events.BuildFailedEvent{RunID: o.runID, Err: err, Timestamp: time.Now()})
	return report, err
}

func (o *Orchestrator) finish(p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Phase = p
	o.state.EndTime = time.Now()
}
