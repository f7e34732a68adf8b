package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reactforge/reactforge/internal/agent"
	"github.com/reactforge/reactforge/internal/config"
	"github.com/reactforge/reactforge/internal/events"
	"github.com/reactforge/reactforge/internal/orchestrator"
	"github.com/reactforge/reactforge/internal/tui"
)

func main() {
	useTUI := flag.Bool("tui", false, "run the interactive build dashboard")
	failFast := flag.Bool("fail-fast", false, "abort remaining waves on first failure")
	dryRun := flag.Bool("dry-run", false, "plan and execute without driving the toolchain")
	publish := flag.Bool("publish", false, "publish built packages to npm")
	verbose := flag.Bool("verbose", false, "print every build event")
	concurrency := flag.Int("concurrency", 0, "max agents per batch (0 = config value)")
	outputDir := flag.String("output", "", "output directory override")
	flag.Parse()

	// Create signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags override whatever the config layers produced, but only when the
	// user actually passed them.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fail-fast":
			cfg.FailFast = *failFast
		case "dry-run":
			cfg.DryRun = *dryRun
		case "publish":
			cfg.PublishToNpm = *publish
		case "verbose":
			cfg.Verbose = *verbose
		case "concurrency":
			cfg.MaxConcurrency = *concurrency
		case "output":
			cfg.OutputDir = *outputDir
		}
	})

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
		os.Exit(1)
	}
	globalPath := filepath.Join(homeDir, ".reactforge", "config.json")
	projectPath := filepath.Join(".reactforge", "config.json")

	// Kill toolchain subprocesses on shutdown
	procs := agent.NewProcessManager()
	go func() {
		<-ctx.Done()
		if err := procs.KillAll(); err != nil {
			log.Printf("Error killing subprocesses: %v", err)
		}
	}()

	bus := events.NewBus()
	defer bus.Close()

	roster := agent.NewRoster(agent.Deps{
		Build:    cfg,
		Procs:    procs,
		Breakers: agent.NewBreakerRegistry(),
	})
	orch := orchestrator.New(cfg, roster, bus)

	if *useTUI {
		os.Exit(runDashboard(ctx, orch, bus, cfg, globalPath, projectPath))
	}

	os.Exit(runHeadless(ctx, orch, bus, cfg))
}

// runHeadless executes the build, optionally echoing events, and prints the
// final report.
func runHeadless(ctx context.Context, orch *orchestrator.Orchestrator, bus *events.Bus, cfg *config.BuildConfig) int {
	if cfg.Verbose {
		bus.OnEvent(func(ev events.Event) {
			fmt.Println(formatEvent(ev))
		})
	}

	report, err := orch.Run(ctx)
	if report != nil {
		fmt.Print(renderReport(report))
	}

	if err != nil {
		var abort *orchestrator.AbortError
		if errors.As(err, &abort) {
			fmt.Fprintf(os.Stderr, "%v\n", abort)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	if !report.Success {
		return 1
	}
	return 0
}

// runDashboard runs the build behind the TUI. The dashboard stays up after
// the build settles so the user can inspect agent output before quitting.
func runDashboard(ctx context.Context, orch *orchestrator.Orchestrator, bus *events.Bus, cfg *config.BuildConfig, globalPath, projectPath string) int {
	model := tui.New(bus, cfg, globalPath, projectPath)
	p := tea.NewProgram(model, tea.WithAltScreen())

	type runOutcome struct {
		report *orchestrator.Report
		err    error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		report, err := orch.Run(ctx)
		outcome <- runOutcome{report, err}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out := <-outcome
	if out.report != nil {
		fmt.Print(renderReport(out.report))
	}
	if out.err != nil || (out.report != nil && !out.report.Success) {
		return 1
	}
	return 0
}
