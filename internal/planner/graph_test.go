package planner

import (
	"strings"
	"testing"

	"github.com/reactforge/reactforge/internal/agent"
)

func testConfig(id agent.ID, priority int, deps ...agent.ID) agent.Config {
	cfg := agent.Config{ID: id, Name: string(id), Priority: priority}
	for _, dep := range deps {
		cfg.Dependencies = append(cfg.Dependencies, agent.Dependency{AgentID: dep, Required: true})
	}
	return cfg
}

func rosterOf(configs ...agent.Config) map[agent.ID]agent.Config {
	m := make(map[agent.ID]agent.Config, len(configs))
	for _, cfg := range configs {
		m[cfg.ID] = cfg
	}
	return m
}

func TestBuildGraph(t *testing.T) {
	g, err := BuildGraph(rosterOf(
		testConfig(agent.TypeCheck, 10),
		testConfig(agent.Lint, 9),
		testConfig(agent.Test, 8, agent.TypeCheck),
		testConfig(agent.Bundle, 8, agent.TypeCheck, agent.Test),
	))
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	if got := g.Requires(agent.Bundle); len(got) != 2 {
		t.Errorf("Requires(bundle) = %v, want 2 deps", got)
	}
	if got := g.Requires(agent.Lint); len(got) != 0 {
		t.Errorf("Requires(lint) = %v, want none", got)
	}

	deps := g.Dependents(agent.TypeCheck)
	if len(deps) != 2 {
		t.Fatalf("Dependents(typecheck) = %v, want [test bundle]", deps)
	}

	order := g.Order()
	want := []agent.ID{agent.TypeCheck, agent.Lint, agent.Test, agent.Bundle}
	if len(order) != len(want) {
		t.Fatalf("Order() = %v, want %v", order, want)
	}
	for i, id := range want {
		if order[i] != id {
			t.Errorf("Order()[%d] = %s, want %s", i, order[i], id)
		}
	}
}

func TestBuildGraphSoftDepsExcluded(t *testing.T) {
	cfg := testConfig(agent.Quality, 6, agent.Lint)
	cfg.Dependencies = append(cfg.Dependencies, agent.Dependency{AgentID: agent.Test, Required: false})

	g, err := BuildGraph(rosterOf(
		testConfig(agent.Lint, 9),
		testConfig(agent.Test, 8),
		cfg,
	))
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	got := g.Requires(agent.Quality)
	if len(got) != 1 || got[0] != agent.Lint {
		t.Errorf("Requires(quality) = %v, want [lint] only", got)
	}
}

func TestBuildGraphMissingDependency(t *testing.T) {
	_, err := BuildGraph(rosterOf(
		testConfig(agent.Test, 8, agent.TypeCheck),
	))
	if err == nil {
		t.Fatal("expected error for dependency on absent agent")
	}
	if !strings.Contains(err.Error(), "non-existent") {
		t.Errorf("error = %v, want mention of non-existent agent", err)
	}
}

func TestBuildGraphUnknownID(t *testing.T) {
	_, err := BuildGraph(map[agent.ID]agent.Config{
		"frobnicate": {ID: "frobnicate"},
	})
	if err == nil {
		t.Fatal("expected error for ID outside the roster")
	}
	if !strings.Contains(err.Error(), "unknown agent id") {
		t.Errorf("error = %v, want unknown-id error", err)
	}
}

func TestValidateOrderRespectsDependencies(t *testing.T) {
	g, err := BuildGraph(rosterOf(
		testConfig(agent.TypeCheck, 10),
		testConfig(agent.Test, 8, agent.TypeCheck),
		testConfig(agent.Bundle, 8, agent.Test),
	))
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	order, err := g.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(order) != 3 {
		t.Fatalf("Validate returned %d ids, want 3", len(order))
	}

	pos := make(map[agent.ID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos[agent.TypeCheck] > pos[agent.Test] || pos[agent.Test] > pos[agent.Bundle] {
		t.Errorf("order %v violates typecheck < test < bundle", order)
	}
}

func TestValidateNamesCycleParticipants(t *testing.T) {
	g, err := BuildGraph(rosterOf(
		testConfig(agent.TypeCheck, 10),
		testConfig(agent.Test, 8, agent.Bundle),
		testConfig(agent.Bundle, 8, agent.Test),
	))
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	if _, err := g.Validate(); err == nil {
		t.Fatal("expected cycle error")
	} else {
		msg := err.Error()
		if !strings.Contains(msg, "bundle") || !strings.Contains(msg, "test") {
			t.Errorf("cycle error %q does not name both participants", msg)
		}
		if strings.Contains(msg, "typecheck") {
			t.Errorf("cycle error %q names an agent outside the cycle", msg)
		}
	}
}
