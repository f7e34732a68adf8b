package events

import (
	"sync"
)

// Handler receives build events.
type Handler func(Event)

// Bus is the central build-event stream: an ordered listener registry with
// synchronous delivery. Every handler sees every event, in emission order;
// there is no buffering and no replay for late subscribers.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
	closed   bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{}
}

// OnEvent registers a handler. Handlers are invoked synchronously, in
// registration order, from the publishing goroutine.
func (b *Bus) OnEvent(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.handlers = append(b.handlers, h)
}

// Publish delivers an event to every registered handler. The lock is held
// for the duration of delivery: concurrent publishers are serialized, so
// all handlers observe the same total order. Handlers must not block
// indefinitely and must not re-enter the bus.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, h := range b.handlers {
		h(ev)
	}
}

// Close stops delivery. Safe to call multiple times (idempotent).
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
