package events

import (
	"time"

	"github.com/reactforge/reactforge/internal/agent"
)

// Event is the base interface for all build events.
type Event interface {
	EventType() string
	AgentID() agent.ID // empty for build- and wave-level events
}

// Event type constants
const (
	EventTypeBuildStarted   = "BUILD_STARTED"
	EventTypeWaveStarted    = "WAVE_STARTED"
	EventTypeWaveCompleted  = "WAVE_COMPLETED"
	EventTypeAgentStarted   = "AGENT_STARTED"
	EventTypeAgentProgress  = "AGENT_PROGRESS"
	EventTypeAgentCompleted = "AGENT_COMPLETED"
	EventTypeAgentFailed    = "AGENT_FAILED"
	EventTypeBuildCompleted = "BUILD_COMPLETED"
	EventTypeBuildFailed    = "BUILD_FAILED"
)

// BuildStartedEvent is published when a run enters the planning phase.
type BuildStartedEvent struct {
	RunID     string
	Agents    int
	Timestamp time.Time
}

func (e BuildStartedEvent) EventType() string { return EventTypeBuildStarted }
func (e BuildStartedEvent) AgentID() agent.ID { return "" }

// WaveStartedEvent is published before a wave's first batch launches.
type WaveStartedEvent struct {
	Wave       int // zero-based
	TotalWaves int
	Members    []agent.ID
	Timestamp  time.Time
}

func (e WaveStartedEvent) EventType() string { return EventTypeWaveStarted }
func (e WaveStartedEvent) AgentID() agent.ID { return "" }

// WaveCompletedEvent is published once every batch of a wave has settled.
type WaveCompletedEvent struct {
	Wave      int
	Succeeded int
	Failed    int
	Blocked   int
	Timestamp time.Time
}

func (e WaveCompletedEvent) EventType() string { return EventTypeWaveCompleted }
func (e WaveCompletedEvent) AgentID() agent.ID { return "" }

// AgentStartedEvent republishes an agent's started event.
type AgentStartedEvent struct {
	ID        agent.ID
	Name      string
	Timestamp time.Time
}

func (e AgentStartedEvent) EventType() string { return EventTypeAgentStarted }
func (e AgentStartedEvent) AgentID() agent.ID { return e.ID }

// AgentProgressEvent republishes an agent's progress event.
type AgentProgressEvent struct {
	ID        agent.ID
	Percent   int
	Message   string
	Timestamp time.Time
}

func (e AgentProgressEvent) EventType() string { return EventTypeAgentProgress }
func (e AgentProgressEvent) AgentID() agent.ID { return e.ID }

// AgentCompletedEvent republishes an agent's terminal completed event.
type AgentCompletedEvent struct {
	ID        agent.ID
	Result    *agent.Result
	Timestamp time.Time
}

func (e AgentCompletedEvent) EventType() string { return EventTypeAgentCompleted }
func (e AgentCompletedEvent) AgentID() agent.ID { return e.ID }

// AgentFailedEvent republishes an agent's terminal failed event.
type AgentFailedEvent struct {
	ID        agent.ID
	Err       error
	Timestamp time.Time
}

func (e AgentFailedEvent) EventType() string { return EventTypeAgentFailed }
func (e AgentFailedEvent) AgentID() agent.ID { return e.ID }

// BuildCompletedEvent is published when a run finishes without abort.
type BuildCompletedEvent struct {
	RunID     string
	Success   bool
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
	Timestamp time.Time
}

func (e BuildCompletedEvent) EventType() string { return EventTypeBuildCompleted }
func (e BuildCompletedEvent) AgentID() agent.ID { return "" }

// BuildFailedEvent is published when a run aborts or errors.
type BuildFailedEvent struct {
	RunID     string
	Err       error
	Timestamp time.Time
}

func (e BuildFailedEvent) EventType() string { return EventTypeBuildFailed }
func (e BuildFailedEvent) AgentID() agent.ID { return "" }
