package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestBackOffCurveIsMonotonic(t *testing.T) {
	policy := DefaultRetryConfig().newBackOff()

	want := []time.Duration{
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
		10 * time.Second,
	}
	var prev time.Duration
	for i, w := range want {
		got := policy.NextBackOff()
		if got != w {
			t.Errorf("NextBackOff #%d = %v, want %v", i+1, got, w)
		}
		if got < prev {
			t.Errorf("NextBackOff #%d = %v decreased from %v", i+1, got, prev)
		}
		prev = got
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	reg := NewBreakerRegistry()
	cb := reg.Get(Lint)

	fail := func() (interface{}, error) { return nil, errors.New("tool broken") }
	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(fail); err == nil {
			t.Fatalf("Execute #%d succeeded unexpectedly", i+1)
		}
	}

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want open-state refusal", err)
	}
	if !isBreakerOpen(err) {
		t.Error("isBreakerOpen = false for open-state error")
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	reg := NewBreakerRegistry()
	cb := reg.Get(Test)

	cancelled := func() (interface{}, error) { return nil, context.Canceled }
	for i := 0; i < 5; i++ {
		cb.Execute(cancelled)
	}

	if _, err := cb.Execute(func() (interface{}, error) { return nil, nil }); err != nil {
		t.Fatalf("breaker tripped on cancellations: %v", err)
	}
}

func TestBreakerRegistryReturnsSameInstance(t *testing.T) {
	reg := NewBreakerRegistry()
	if reg.Get(Bundle) != reg.Get(Bundle) {
		t.Error("Get returned different breakers for the same agent")
	}
	if reg.Get(Bundle) == reg.Get(Build) {
		t.Error("Get returned the same breaker for different agents")
	}
}

func TestOpenBreakerShortCircuitsRetries(t *testing.T) {
	var calls int32
	task := func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("tool broken")
	}
	reg := NewBreakerRegistry()
	a := New(Config{ID: Performance, Timeout: time.Second, Retries: 5}, task, reg)

	res := a.ExecuteWithRetries(context.Background())

	if res.Success {
		t.Fatal("want failure")
	}
	// Three failures trip the breaker; the fourth attempt is refused and the
	// remaining two are abandoned.
	if n := atomic.LoadInt32(&calls); n > 4 {
		t.Errorf("task ran %d times, want at most 4 before the breaker opened", n)
	}
	if !isBreakerOpen(res.Err) {
		t.Errorf("Err = %v, want breaker-open error", res.Err)
	}
}
