package agent

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// RetryConfig configures the delay curve between execution attempts.
// The curve is exponential with zero jitter: the contract requires the delay
// to be monotonically non-decreasing, which randomization would break.
type RetryConfig struct {
	InitialInterval time.Duration // First retry delay (default 250ms)
	MaxInterval     time.Duration // Delay ceiling (default 10s)
	Multiplier      float64       // Growth factor (default 2.0)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// newBackOff builds the backoff policy for one execution. MaxElapsedTime is
// left unset: the attempt budget is bounded by Config.Retries, not wall time.
func (c RetryConfig) newBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.InitialInterval
	policy.MaxInterval = c.MaxInterval
	policy.Multiplier = c.Multiplier
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	policy.Reset()
	return policy
}

// BreakerRegistry manages one circuit breaker per roster agent.
// A breaker that trips (the underlying tool failing repeatedly) short-circuits
// the remaining retries for that agent instead of hammering a broken tool.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[ID]*gobreaker.CircuitBreaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[ID]*gobreaker.CircuitBreaker),
	}
}

// Get returns the breaker for the given agent, creating it on first use.
func (r *BreakerRegistry) Get(id ID) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[id]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(id),
		MaxRequests: 1,                // One probe request in half-open state
		Interval:    0,                // Don't clear counts automatically
		Timeout:     30 * time.Second, // Stay open for 30s before probing
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("WARNING: circuit breaker %q: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is the caller's doing, not a tool failure.
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	r.breakers[id] = cb
	return cb
}

// isBreakerOpen reports whether err means the breaker refused the call.
func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
