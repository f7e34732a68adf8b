package agent

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Agent is the execution contract every roster member implements.
// ExecuteWithRetries never panics and never returns an error: failures
// surface as a Result with Success=false.
type Agent interface {
	Config() Config
	Events() *Emitter
	ExecuteWithRetries(ctx context.Context) Result
}

// TaskFunc performs one attempt of an agent's work. It must honor ctx: an
// attempt whose deadline expires is abandoned and counted as a failure.
type TaskFunc func(ctx context.Context, rec *Recorder) (map[string]any, error)

// Recorder collects logs, metrics, and progress during execution. Safe for
// use from the attempt goroutine while the base agent reads after settlement.
type Recorder struct {
	mu      sync.Mutex
	agentID ID
	emitter *Emitter
	logs    []LogEntry
	metrics Metrics
}

// Logf appends a log entry at the given level.
func (r *Recorder) Logf(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// Progress emits a progress event on the agent's stream and logs it.
func (r *Recorder) Progress(percent int, message string) {
	r.Logf("info", "%3d%% %s", percent, message)
	r.emitter.Emit(Event{
		Kind:    EventProgress,
		AgentID: r.agentID,
		Percent: percent,
		Message: message,
	})
}

// AddFiles increments the files-processed counter.
func (r *Recorder) AddFiles(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.FilesProcessed += n
}

// AddErrors increments the errors-found counter.
func (r *Recorder) AddErrors(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.ErrorsFound += n
}

// AddWarnings increments the warnings-found counter.
func (r *Recorder) AddWarnings(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.WarningsFound += n
}

func (r *Recorder) snapshot() ([]LogEntry, Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := append([]LogEntry(nil), r.logs...)
	return logs, r.metrics
}

// BaseAgent implements the execution contract around a TaskFunc.
// Concrete roster agents are a Config plus a TaskFunc; there is no
// inheritance hierarchy, only composition.
type BaseAgent struct {
	cfg      Config
	task     TaskFunc
	emitter  *Emitter
	retry    RetryConfig
	breakers *BreakerRegistry // nil disables circuit breaking
}

// New creates a roster agent from its config and task function.
func New(cfg Config, task TaskFunc, breakers *BreakerRegistry) *BaseAgent {
	return &BaseAgent{
		cfg:      cfg,
		task:     task,
		emitter:  NewEmitter(),
		retry:    DefaultRetryConfig(),
		breakers: breakers,
	}
}

// Config returns the agent's static configuration.
func (a *BaseAgent) Config() Config { return a.cfg }

// Events returns the agent's lifecycle event stream.
func (a *BaseAgent) Events() *Emitter { return a.emitter }

// ExecuteWithRetries runs the task up to Retries+1 times, each attempt
// bounded by Config.Timeout. Delays between attempts follow the retry
// config's exponential curve. On exhaustion it returns a failed Result;
// it never panics out.
func (a *BaseAgent) ExecuteWithRetries(ctx context.Context) Result {
	a.emitter.Emit(Event{Kind: EventStarted, AgentID: a.cfg.ID})

	rec := &Recorder{agentID: a.cfg.ID, emitter: a.emitter}
	rec.mu.Lock()
	rec.metrics.StartTime = time.Now()
	rec.mu.Unlock()

	policy := a.retry.newBackOff()
	attempts := a.cfg.Retries + 1

	var data map[string]any
	var lastErr error
	status := StatusFailed

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.NextBackOff()
			rec.Logf("warn", "attempt %d/%d failed: %v (retrying in %s)", attempt-1, attempts, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				status = StatusCancelled
			}
			if status == StatusCancelled {
				break
			}
		}

		data, lastErr = a.attempt(ctx, rec)
		if lastErr == nil {
			status = StatusSuccess
			break
		}
		if ctx.Err() != nil {
			status = StatusCancelled
			break
		}
		if isBreakerOpen(lastErr) {
			// Tool is known-broken; further attempts would be refused too.
			rec.Logf("error", "circuit open for %s, abandoning remaining attempts", a.cfg.ID)
			break
		}
	}

	logs, metrics := rec.snapshot()
	metrics.EndTime = time.Now()
	metrics.Duration = metrics.EndTime.Sub(metrics.StartTime)

	res := Result{
		AgentID: a.cfg.ID,
		Success: status == StatusSuccess,
		Status:  status,
		Data:    data,
		Err:     lastErr,
		Logs:    logs,
		Metrics: metrics,
	}

	if res.Success {
		a.emitter.Emit(Event{Kind: EventCompleted, AgentID: a.cfg.ID, Result: &res})
	} else {
		a.emitter.Emit(Event{Kind: EventFailed, AgentID: a.cfg.ID, Err: lastErr})
	}

	return res
}

// attempt runs the task once under the per-attempt timeout and, when a
// breaker registry is configured, through the agent's circuit breaker.
// A panicking task is converted into an error.
func (a *BaseAgent) attempt(ctx context.Context, rec *Recorder) (map[string]any, error) {
	attemptCtx := ctx
	cancel := func() {}
	if a.cfg.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
	}
	defer cancel()

	run := func() (data map[string]any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("agent %s panicked: %v", a.cfg.ID, r)
			}
		}()
		return a.task(attemptCtx, rec)
	}

	type outcome struct {
		data map[string]any
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		data, err := run()
		done <- outcome{data, err}
	}()

	var out outcome
	if a.breakers != nil {
		cb := a.breakers.Get(a.cfg.ID)
		result, err := cb.Execute(func() (interface{}, error) {
			select {
			case o := <-done:
				return o.data, o.err
			case <-attemptCtx.Done():
				// The attempt goroutine is abandoned; task funcs must honor
				// ctx so the abandonment is short-lived.
				return nil, attemptCtx.Err()
			}
		})
		if err != nil {
			out = outcome{err: err}
		} else if result != nil {
			out = outcome{data: result.(map[string]any)}
		}
	} else {
		select {
		case out = <-done:
		case <-attemptCtx.Done():
			out = outcome{err: attemptCtx.Err()}
		}
	}

	if out.err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		out.err = fmt.Errorf("attempt timed out after %s: %w", a.cfg.Timeout, out.err)
	}

	return out.data, out.err
}
