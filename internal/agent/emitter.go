package agent

import (
	"sync"
	"time"
)

// EventKind discriminates agent lifecycle events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is one entry in an agent's lifecycle stream. Per execution the
// sequence is: one Started, zero or more Progress, then exactly one of
// Completed or Failed.
type Event struct {
	Kind      EventKind
	AgentID   ID
	Percent   int     // Progress only
	Message   string  // Progress only
	Result    *Result // Completed only
	Err       error   // Failed only
	Timestamp time.Time
}

// Emitter is an agent's event stream: an ordered listener registry with
// synchronous delivery. There is no buffering or replay; handlers registered
// after an event was emitted never see it.
type Emitter struct {
	mu       sync.Mutex
	handlers []func(Event)
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// OnEvent registers a handler. Handlers are invoked synchronously, in
// registration order, from the emitting goroutine.
func (e *Emitter) OnEvent(h func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

// Emit delivers an event to every registered handler. The lock is held for
// the duration of delivery so concurrent emitters observe a total order.
// Handlers must not re-enter the emitter.
func (e *Emitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.handlers {
		h(ev)
	}
}
