package agent

import (
	"time"

	"github.com/reactforge/reactforge/internal/config"
)

// Deps carries what roster agents need at construction time.
type Deps struct {
	Build    *config.BuildConfig
	Procs    *ProcessManager
	Breakers *BreakerRegistry
}

// Constructor builds one roster agent.
type Constructor func(d Deps) Agent

// registry is the static ID -> constructor map. The roster is closed: these
// ten agents and nothing else.
var registry = map[ID]Constructor{
	TypeCheck:     newTypeCheckAgent,
	Lint:          newLintAgent,
	Test:          newTestAgent,
	Security:      newSecurityAgent,
	Quality:       newQualityAgent,
	Bundle:        newBundleAgent,
	Performance:   newPerformanceAgent,
	Documentation: newDocumentationAgent,
	Build:         newBuildAgent,
	Publish:       newPublishAgent,
}

// NewRoster constructs the full fixed roster.
func NewRoster(d Deps) map[ID]Agent {
	roster := make(map[ID]Agent, len(registry))
	for id, construct := range registry {
		roster[id] = construct(d)
	}
	return roster
}

// Configs extracts the static configuration of every roster member,
// which is what the planner consumes.
func Configs(roster map[ID]Agent) map[ID]Config {
	configs := make(map[ID]Config, len(roster))
	for id, a := range roster {
		configs[id] = a.Config()
	}
	return configs
}

func required(id ID) Dependency {
	return Dependency{AgentID: id, Required: true}
}

func soft(id ID, cond func(*Result) bool) Dependency {
	return Dependency{AgentID: id, Required: false, Condition: cond}
}

func newTypeCheckAgent(d Deps) Agent {
	return New(Config{
		ID:          TypeCheck,
		Name:        "TypeScript Type Check",
		Description: "Type-checks every target without emitting output",
		Timeout:     2 * time.Minute,
		Retries:     1,
		Priority:    10,
		Parallel:    true,
	}, typeCheckTask(d), d.Breakers)
}

func newLintAgent(d Deps) Agent {
	return New(Config{
		ID:          Lint,
		Name:        "ESLint",
		Description: "Lints source files across all targets",
		Timeout:     90 * time.Second,
		Retries:     1,
		Priority:    9,
		Parallel:    true,
	}, lintTask(d), d.Breakers)
}

func newTestAgent(d Deps) Agent {
	return New(Config{
		ID:           Test,
		Name:         "Test Runner",
		Description:  "Runs the unit and integration test suites",
		Dependencies: []Dependency{required(TypeCheck)},
		Timeout:      5 * time.Minute,
		Retries:      1,
		Priority:     8,
		Parallel:     true,
	}, testTask(d), d.Breakers)
}

func newSecurityAgent(d Deps) Agent {
	return New(Config{
		ID:          Security,
		Name:        "Security Audit",
		Description: "Checks dependency lockfiles and scans for committed secrets",
		Timeout:     2 * time.Minute,
		Retries:     2,
		Priority:    7,
		Parallel:    true,
	}, securityTask(d), d.Breakers)
}

func newQualityAgent(d Deps) Agent {
	return New(Config{
		ID:          Quality,
		Name:        "Code Quality",
		Description: "Computes size and complexity signals per target",
		Dependencies: []Dependency{
			required(Lint),
			// Informational: quality reads test outcomes when available.
			soft(Test, func(r *Result) bool { return r != nil && r.Success }),
		},
		Timeout:  time.Minute,
		Priority: 6,
		Parallel: true,
	}, qualityTask(d), d.Breakers)
}

func newBundleAgent(d Deps) Agent {
	return New(Config{
		ID:           Bundle,
		Name:         "Bundler",
		Description:  "Bundles application targets into the output directory",
		Dependencies: []Dependency{required(TypeCheck), required(Test)},
		Timeout:      4 * time.Minute,
		Retries:      1,
		Priority:     8,
		Parallel:     true,
		Artifacts:    []string{d.Build.OutputDir},
	}, bundleTask(d), d.Breakers)
}

func newPerformanceAgent(d Deps) Agent {
	return New(Config{
		ID:           Performance,
		Name:         "Performance Budget",
		Description:  "Checks emitted bundle sizes against the budget",
		Dependencies: []Dependency{required(Bundle)},
		Timeout:      time.Minute,
		Priority:     4,
		Parallel:     true,
	}, performanceTask(d), d.Breakers)
}

func newDocumentationAgent(d Deps) Agent {
	return New(Config{
		ID:           Documentation,
		Name:         "Documentation",
		Description:  "Collects and validates package documentation",
		Dependencies: []Dependency{required(TypeCheck)},
		Timeout:      90 * time.Second,
		Priority:     5,
		Parallel:     true,
	}, documentationTask(d), d.Breakers)
}

func newBuildAgent(d Deps) Agent {
	return New(Config{
		ID:           Build,
		Name:         "Package Build",
		Description:  "Produces publishable package artifacts",
		Dependencies: []Dependency{required(Bundle), required(Quality), required(Security)},
		Timeout:      4 * time.Minute,
		Retries:      1,
		Priority:     9,
		Parallel:     true,
		Artifacts:    []string{d.Build.OutputDir},
	}, buildTask(d), d.Breakers)
}

func newPublishAgent(d Deps) Agent {
	return New(Config{
		ID:           Publish,
		Name:         "NPM Publish",
		Description:  "Publishes built packages to the npm registry",
		Dependencies: []Dependency{required(Build)},
		Timeout:      3 * time.Minute,
		Retries:      2,
		Priority:     10,
		Parallel:     false,
		Artifacts:    []string{d.Build.OutputDir},
	}, publishTask(d), d.Breakers)
}
