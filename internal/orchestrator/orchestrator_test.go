package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/config"
	"github.com/reactforge/reactforge/internal/events"
)

// stubAgent is a canned-result roster member that counts invocations.
type stubAgent struct {
	cfg     agent.Config
	emitter *agent.Emitter
	calls   int32
	run     func(ctx context.Context) agent.Result
}

func (s *stubAgent) Config() agent.Config   { return s.cfg }
func (s *stubAgent) Events() *agent.Emitter { return s.emitter }

func (s *stubAgent) ExecuteWithRetries(ctx context.Context) agent.Result {
	atomic.AddInt32(&s.calls, 1)
	if s.run != nil {
		return s.run(ctx)
	}
	return agent.Result{AgentID: s.cfg.ID, Success: true, Status: agent.StatusSuccess}
}

func (s *stubAgent) invocations() int32 { return atomic.LoadInt32(&s.calls) }

func newStub(id agent.ID, priority int, deps ...agent.ID) *stubAgent {
	cfg := agent.Config{ID: id, Name: string(id), Priority: priority, Parallel: true}
	for _, dep := range deps {
		cfg.Dependencies = append(cfg.Dependencies, agent.Dependency{AgentID: dep, Required: true})
	}
	return &stubAgent{cfg: cfg, emitter: agent.NewEmitter()}
}

func failing(s *stubAgent) *stubAgent {
	s.run = func(ctx context.Context) agent.Result {
		return agent.Result{AgentID: s.cfg.ID, Success: false, Status: agent.StatusFailed, Err: errors.New("tool failed")}
	}
	return s
}

func rosterOf(stubs ...*stubAgent) map[agent.ID]agent.Agent {
	m := make(map[agent.ID]agent.Agent, len(stubs))
	for _, s := range stubs {
		m[s.cfg.ID] = s
	}
	return m
}

func testBuildConfig() *config.BuildConfig {
	return &config.BuildConfig{Parallel: true, MaxConcurrency: 4}
}

func TestRunAllSucceed(t *testing.T) {
	typecheck := newStub(agent.TypeCheck, 10)
	test := newStub(agent.Test, 8, agent.TypeCheck)

	o := New(testBuildConfig(), rosterOf(typecheck, test), events.NewBus())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Success {
		t.Errorf("report.Success = false, want true")
	}
	if report.Summary.SuccessfulAgents != 2 || report.Summary.FailedAgents != 0 || report.Summary.SkippedAgents != 0 {
		t.Errorf("summary = %+v, want 2/0/0", report.Summary)
	}
	if typecheck.invocations() != 1 || test.invocations() != 1 {
		t.Errorf("invocations = %d/%d, want 1/1", typecheck.invocations(), test.invocations())
	}
	if report.RunID == "" {
		t.Error("report.RunID is empty")
	}
	if o.State().Phase != PhaseComplete {
		t.Errorf("phase = %s, want complete", o.State().Phase)
	}
}

func TestDependencyGatingBlocksWithoutInvoking(t *testing.T) {
	typecheck := failing(newStub(agent.TypeCheck, 10))
	test := newStub(agent.Test, 8, agent.TypeCheck)
	bundle := newStub(agent.Bundle, 8, agent.TypeCheck, agent.Test)

	o := New(testBuildConfig(), rosterOf(typecheck, test, bundle), events.NewBus())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if test.invocations() != 0 || bundle.invocations() != 0 {
		t.Errorf("blocked agents invoked %d/%d times, want 0/0", test.invocations(), bundle.invocations())
	}

	res, ok := report.Results[agent.Test]
	if !ok || res.Status != agent.StatusBlocked {
		t.Errorf("test result = %+v, want blocked", res)
	}
	if res.Err == nil {
		t.Error("blocked result carries no error")
	}

	s := report.Summary
	if s.FailedAgents != 1 || s.SkippedAgents != 2 || s.SuccessfulAgents != 0 {
		t.Errorf("summary = %+v, want failed=1 skipped=2", s)
	}
	if report.Success {
		t.Error("report.Success = true with failures")
	}
}

func TestFailFastAbortsRemainingWaves(t *testing.T) {
	typecheck := failing(newStub(agent.TypeCheck, 10))
	lint := newStub(agent.Lint, 9)
	test := newStub(agent.Test, 8, agent.TypeCheck)

	cfg := testBuildConfig()
	cfg.FailFast = true

	o := New(cfg, rosterOf(typecheck, lint, test), events.NewBus())
	report, err := o.Run(context.Background())

	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("err = %v, want *AbortError", err)
	}
	if len(abort.FailedAgents) != 1 || abort.FailedAgents[0] != agent.TypeCheck {
		t.Errorf("FailedAgents = %v, want [typecheck]", abort.FailedAgents)
	}
	if abort.Report != report {
		t.Error("abort does not carry the partial report")
	}

	// The failing wave still finishes: lint ran alongside typecheck.
	if lint.invocations() != 1 {
		t.Errorf("lint invoked %d times, want 1", lint.invocations())
	}
	// Later waves never start.
	if test.invocations() != 0 {
		t.Errorf("test invoked %d times after abort, want 0", test.invocations())
	}

	if _, ok := report.Results[agent.Test]; ok {
		t.Error("aborted agent has a result; want absent from partial report")
	}
	if report.Summary.SkippedAgents != 1 {
		t.Errorf("SkippedAgents = %d, want 1", report.Summary.SkippedAgents)
	}
	if o.State().Phase != PhaseFailed {
		t.Errorf("phase = %s, want failed", o.State().Phase)
	}
}

func TestFailFastDisabledRunsEverything(t *testing.T) {
	typecheck := failing(newStub(agent.TypeCheck, 10))
	lint := newStub(agent.Lint, 9)
	quality := newStub(agent.Quality, 6, agent.Lint)

	o := New(testBuildConfig(), rosterOf(typecheck, lint, quality), events.NewBus())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if quality.invocations() != 1 {
		t.Errorf("quality invoked %d times, want 1 (lint succeeded)", quality.invocations())
	}
	if report.Summary.SuccessfulAgents != 2 || report.Summary.FailedAgents != 1 {
		t.Errorf("summary = %+v, want 2 ok / 1 failed", report.Summary)
	}
}

// concurrencyProbe fails the test if more than limit executions overlap.
type concurrencyProbe struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (p *concurrencyProbe) enter() {
	p.mu.Lock()
	p.current++
	if p.current > p.peak {
		p.peak = p.current
	}
	p.mu.Unlock()
}

func (p *concurrencyProbe) exit() {
	p.mu.Lock()
	p.current--
	p.mu.Unlock()
}

func probed(s *stubAgent, probe *concurrencyProbe) *stubAgent {
	s.run = func(ctx context.Context) agent.Result {
		probe.enter()
		time.Sleep(20 * time.Millisecond)
		probe.exit()
		return agent.Result{AgentID: s.cfg.ID, Success: true, Status: agent.StatusSuccess}
	}
	return s
}

func TestMaxConcurrencyBoundsBatches(t *testing.T) {
	tests := []struct {
		name     string
		parallel bool
		limit    int
		wantPeak int
	}{
		{"serial", false, 4, 1},
		{"two slots", true, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &concurrencyProbe{}
			roster := rosterOf(
				probed(newStub(agent.TypeCheck, 10), probe),
				probed(newStub(agent.Lint, 9), probe),
				probed(newStub(agent.Security, 7), probe),
			)

			cfg := testBuildConfig()
			cfg.Parallel = tt.parallel
			cfg.MaxConcurrency = tt.limit

			o := New(cfg, roster, events.NewBus())
			if _, err := o.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if probe.peak > tt.wantPeak {
				t.Errorf("peak concurrency = %d, want at most %d", probe.peak, tt.wantPeak)
			}
		})
	}
}

func TestSummaryInvariant(t *testing.T) {
	typecheck := newStub(agent.TypeCheck, 10)
	lint := failing(newStub(agent.Lint, 9))
	test := newStub(agent.Test, 8, agent.TypeCheck)
	quality := newStub(agent.Quality, 6, agent.Lint)

	o := New(testBuildConfig(), rosterOf(typecheck, lint, test, quality), events.NewBus())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := report.Summary
	if got := s.SuccessfulAgents + s.FailedAgents + s.SkippedAgents; got != s.TotalAgents {
		t.Errorf("succ+failed+skipped = %d, want TotalAgents = %d", got, s.TotalAgents)
	}
	if s.SuccessfulAgents != 2 || s.FailedAgents != 1 || s.SkippedAgents != 1 {
		t.Errorf("summary = %+v, want 2/1/1", s)
	}
}

func TestPublishedPackagesSurfaceInSummary(t *testing.T) {
	build := newStub(agent.Build, 9)
	publish := newStub(agent.Publish, 10, agent.Build)
	publish.run = func(ctx context.Context) agent.Result {
		return agent.Result{
			AgentID: agent.Publish,
			Success: true,
			Status:  agent.StatusSuccess,
			Data:    map[string]any{"publishedPackages": []string{"app", "ui-kit"}},
		}
	}

	o := New(testBuildConfig(), rosterOf(build, publish), events.NewBus())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := report.Summary.PublishedPackages
	if len(got) != 2 || got[0] != "app" || got[1] != "ui-kit" {
		t.Errorf("PublishedPackages = %v, want [app ui-kit]", got)
	}
}

func TestRecordResultIsWriteOnce(t *testing.T) {
	o := New(testBuildConfig(), rosterOf(newStub(agent.Lint, 9)), events.NewBus())

	first := agent.Result{AgentID: agent.Lint, Success: true, Status: agent.StatusSuccess}
	second := agent.Result{AgentID: agent.Lint, Success: false, Status: agent.StatusFailed}
	o.recordResult(agent.Lint, first)
	o.recordResult(agent.Lint, second)

	res, ok := o.lookupResult(agent.Lint)
	if !ok || !res.Success {
		t.Errorf("result = %+v, want the first write preserved", res)
	}
}

func TestRunEmitsOrderedBuildEvents(t *testing.T) {
	bus := events.NewBus()
	var types []string
	bus.OnEvent(func(ev events.Event) {
		types = append(types, ev.EventType())
	})

	typecheck := newStub(agent.TypeCheck, 10)
	test := newStub(agent.Test, 8, agent.TypeCheck)

	o := New(testBuildConfig(), rosterOf(typecheck, test), bus)
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(types) == 0 || types[0] != events.EventTypeBuildStarted {
		t.Fatalf("first event = %v, want BUILD_STARTED", types)
	}
	if types[len(types)-1] != events.EventTypeBuildCompleted {
		t.Errorf("last event = %s, want BUILD_COMPLETED", types[len(types)-1])
	}

	waveStarts := 0
	for _, tp := range types {
		if tp == events.EventTypeWaveStarted {
			waveStarts++
		}
	}
	if waveStarts != 2 {
		t.Errorf("WAVE_STARTED count = %d, want 2", waveStarts)
	}
}

func TestCancelledContextFailsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(testBuildConfig(), rosterOf(newStub(agent.Lint, 9)), events.NewBus())
	report, err := o.Run(ctx)
	if err == nil {
		t.Fatal("Run succeeded on a cancelled context")
	}
	if report == nil {
		t.Fatal("Run returned no report on cancellation")
	}
	if report.Success {
		t.Error("report.Success = true on cancellation")
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunFullRosterDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"src/App.tsx":       "export const App = () => null;\n",
		"src/App.test.tsx":  "test('renders', () => {});\n",
		"README.md":         "# app\n",
		"package-lock.json": "{}\n",
	})

	cfg := &config.BuildConfig{
		Targets:        []config.Target{{Name: "app", Path: dir, Type: "app"}},
		OutputDir:      dir + "/dist",
		Parallel:       true,
		MaxConcurrency: 4,
		DryRun:         true,
	}

	roster := agent.NewRoster(agent.Deps{
		Build:    cfg,
		Procs:    agent.NewProcessManager(),
		Breakers: agent.NewBreakerRegistry(),
	})

	o := New(cfg, roster, events.NewBus())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !report.Success {
		for id, res := range report.Results {
			if !res.Success {
				t.Logf("%s: %s %v", id, res.Status, res.Err)
			}
		}
		t.Fatal("dry-run build failed")
	}
	if report.Summary.TotalAgents != 10 || report.Summary.SuccessfulAgents != 10 {
		t.Errorf("summary = %+v, want all 10 successful", report.Summary)
	}
	if report.Plan == nil || len(report.Plan.Waves) != 5 {
		t.Errorf("plan waves = %v, want 5 waves", report.Plan)
	}
	if report.Summary.FilesProcessed == 0 {
		t.Error("FilesProcessed = 0, want scanned files counted")
	}
}
