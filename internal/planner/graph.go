package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/reactforge/reactforge/internal/agent"
)

// Graph is the required-dependency graph over the agent roster.
// An edge dep -> agent exists for every required dependency; soft edges and
// conditions never enter the graph.
type Graph struct {
	configs    map[agent.ID]agent.Config
	requires   map[agent.ID][]agent.ID // agent -> required dependency IDs
	dependents map[agent.ID][]agent.ID // dep -> agents requiring it
	order      []agent.ID              // roster members in declaration order
}

// BuildGraph builds the graph from the roster configuration.
// A dependency on an ID absent from the roster is a malformed-roster error.
func BuildGraph(configs map[agent.ID]agent.Config) (*Graph, error) {
	g := &Graph{
		configs:    configs,
		requires:   make(map[agent.ID][]agent.ID, len(configs)),
		dependents: make(map[agent.ID][]agent.ID),
	}

	// Declaration order, filtered to roster members, keeps every downstream
	// iteration deterministic.
	for _, id := range agent.AllIDs() {
		if _, ok := configs[id]; ok {
			g.order = append(g.order, id)
		}
	}
	if len(g.order) != len(configs) {
		// Roster contains an ID outside the closed set.
		known := make(map[agent.ID]bool, len(g.order))
		for _, id := range g.order {
			known[id] = true
		}
		for id := range configs {
			if !known[id] {
				return nil, fmt.Errorf("unknown agent id %q in roster", id)
			}
		}
	}

	for _, id := range g.order {
		for _, depID := range configs[id].RequiredDeps() {
			if _, ok := configs[depID]; !ok {
				return nil, fmt.Errorf("agent %q requires non-existent agent %q", id, depID)
			}
			g.requires[id] = append(g.requires[id], depID)
			g.dependents[depID] = append(g.dependents[depID], id)
		}
	}

	return g, nil
}

// Requires returns the required dependency IDs of an agent.
func (g *Graph) Requires(id agent.ID) []agent.ID {
	return g.requires[id]
}

// Dependents returns the agents that require the given agent.
func (g *Graph) Dependents(id agent.ID) []agent.ID {
	return g.dependents[id]
}

// Order returns the roster in declaration order.
func (g *Graph) Order() []agent.ID {
	return g.order
}

// Adjacency returns a copy of the agent -> required deps map.
func (g *Graph) Adjacency() map[agent.ID][]agent.ID {
	adj := make(map[agent.ID][]agent.ID, len(g.order))
	for _, id := range g.order {
		adj[id] = append([]agent.ID(nil), g.requires[id]...)
	}
	return adj
}

// Validate runs a topological sort over the graph. It returns a full
// dependency-respecting order, or an error naming the cycle participants.
// The planner uses this for diagnostics only: a cyclic roster is still
// force-scheduled, never rejected.
func (g *Graph) Validate() ([]agent.ID, error) {
	var edges []toposort.Edge
	for _, id := range g.order {
		deps := g.requires[id]
		if len(deps) == 0 {
			// Edge from nil so dependency-free agents are still included.
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range deps {
			edges = append(edges, toposort.Edge{depID, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("dependency cycle involving %s: %w", strings.Join(g.cycleParticipants(), ", "), err)
	}

	order := make([]agent.ID, 0, len(sorted))
	for _, v := range sorted {
		if v != nil {
			order = append(order, v.(agent.ID))
		}
	}
	return order, nil
}

// cycleParticipants returns the agents that can never be scheduled because
// of a cycle: those left over after repeatedly peeling off satisfiable ids.
func (g *Graph) cycleParticipants() []string {
	resolved := make(map[agent.ID]bool, len(g.order))
	for {
		progressed := false
		for _, id := range g.order {
			if resolved[id] {
				continue
			}
			ok := true
			for _, depID := range g.requires[id] {
				if !resolved[depID] {
					ok = false
					break
				}
			}
			if ok {
				resolved[id] = true
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	var stuck []string
	for _, id := range g.order {
		if !resolved[id] {
			stuck = append(stuck, string(id))
		}
	}
	sort.Strings(stuck)
	return stuck
}
