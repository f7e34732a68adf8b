package agent

import (
	"time"
)

// ID identifies one of the fixed roster agents.
type ID string

// The full roster. The set is closed: agents are registered at construction
// time and never discovered dynamically.
const (
	TypeCheck     ID = "typecheck"
	Lint          ID = "lint"
	Test          ID = "test"
	Security      ID = "security"
	Quality       ID = "quality"
	Bundle        ID = "bundle"
	Performance   ID = "performance"
	Documentation ID = "documentation"
	Build         ID = "build"
	Publish       ID = "publish"
)

// AllIDs returns every roster ID in declaration order. Declaration order is
// the tie-breaker for wave sorting, so this slice is the canonical ordering.
func AllIDs() []ID {
	return []ID{
		TypeCheck, Lint, Test, Security, Quality,
		Bundle, Performance, Documentation, Build, Publish,
	}
}

// Status represents the terminal or in-flight state of an agent.
type Status int

const (
	StatusIdle      Status = iota // Not yet scheduled
	StatusRunning                 // Currently executing
	StatusSuccess                 // Finished successfully
	StatusFailed                  // Exhausted all attempts
	StatusBlocked                 // Skipped: a required dependency did not succeed
	StatusCancelled               // Run context cancelled mid-execution
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusBlocked:
		return "blocked"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Dependency declares an edge on another roster agent.
// Only Required edges gate wave placement and execution; soft edges and
// Condition predicates are informational.
type Dependency struct {
	AgentID   ID
	Required  bool
	Condition func(*Result) bool
}

// Config is an agent's static configuration. Set once at construction,
// read-only afterwards.
type Config struct {
	ID           ID
	Name         string
	Description  string
	Dependencies []Dependency
	Timeout      time.Duration
	Retries      int // Additional attempts after the first (total = Retries+1)
	Priority     int // Higher runs earlier within a wave
	Parallel     bool
	Artifacts    []string // Output paths this agent writes (for artifact locking)
}

// RequiredDeps returns the IDs of all required dependencies.
func (c Config) RequiredDeps() []ID {
	var deps []ID
	for _, d := range c.Dependencies {
		if d.Required {
			deps = append(deps, d.AgentID)
		}
	}
	return deps
}

// LogEntry is one line of an agent's execution log.
type LogEntry struct {
	Time    time.Time
	Level   string // "info", "warn", "error"
	Message string
}

// Metrics holds best-effort execution measurements. Unavailable counters
// stay at their zero value; they are never fabricated.
type Metrics struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesProcessed int
	ErrorsFound    int
	WarningsFound  int
}

// Result is the outcome of one agent's execution (or a synthetic outcome for
// a blocked agent). Written exactly once by the orchestrator and never
// mutated after insertion into the results map.
type Result struct {
	AgentID ID
	Success bool
	Status  Status
	Data    map[string]any
	Err     error
	Logs    []LogEntry
	Metrics Metrics
}
