package planner

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/reactforge/reactforge/internal/agent"
)

// defaultAgentDuration is the placeholder per-agent estimate used for the
// critical-path duration. There is no measured history inside a single run,
// so the estimate is an approximation, not a measurement.
const defaultAgentDuration = 30 * time.Second

// Plan is the execution plan for one build run. Computed once, immutable.
type Plan struct {
	Waves             [][]agent.ID
	DependencyGraph   map[agent.ID][]agent.ID // agent -> required dependency IDs
	CriticalPath      []agent.ID
	EstimatedDuration time.Duration
}

// BuildPlan turns the roster's declared dependencies into dependency-
// respecting parallel waves plus a critical-path estimate.
//
// Each iteration collects every remaining agent whose required dependencies
// are all completed. If no agent qualifies, the roster has a cycle: all
// remaining agents are force-scheduled into a single wave with a warning.
// That terminates the algorithm but does not resolve the cycle; dependency
// gating at execution time will block the members whose deps never ran.
func BuildPlan(configs map[agent.ID]agent.Config) (*Plan, error) {
	g, err := BuildGraph(configs)
	if err != nil {
		return nil, err
	}

	completed := make(map[agent.ID]bool, len(g.order))
	remaining := append([]agent.ID(nil), g.order...)

	var waves [][]agent.ID
	for len(remaining) > 0 {
		var wave, next []agent.ID
		for _, id := range remaining {
			ready := true
			for _, depID := range g.requires[id] {
				if !completed[depID] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, id)
			} else {
				next = append(next, id)
			}
		}

		if len(wave) == 0 {
			// Cycle: nothing is schedulable. Force everything left into one
			// wave so the loop terminates.
			_, cycleErr := g.Validate()
			log.Printf("WARNING: %v; force-scheduling %d remaining agents into one wave: %s",
				cycleErr, len(remaining), joinIDs(remaining))
			wave = remaining
			next = nil
		}

		// Descending priority; the stable sort keeps declaration order for ties.
		sort.SliceStable(wave, func(i, j int) bool {
			return configs[wave[i]].Priority > configs[wave[j]].Priority
		})

		for _, id := range wave {
			completed[id] = true
		}
		waves = append(waves, wave)
		remaining = next
	}

	critical := criticalPath(g)

	return &Plan{
		Waves:             waves,
		DependencyGraph:   g.Adjacency(),
		CriticalPath:      critical,
		EstimatedDuration: time.Duration(len(critical)) * defaultAgentDuration,
	}, nil
}

// WaveOf returns the index of the wave containing the given agent, or -1.
func (p *Plan) WaveOf(id agent.ID) int {
	for i, wave := range p.Waves {
		for _, member := range wave {
			if member == id {
				return i
			}
		}
	}
	return -1
}

// TotalAgents returns the number of agents across all waves.
func (p *Plan) TotalAgents() int {
	n := 0
	for _, wave := range p.Waves {
		n += len(wave)
	}
	return n
}

// criticalPath finds the longest required-dependency chain through the
// roster: memoized DFS, weight 1 per hop. Cycle members contribute no chain
// beyond themselves (the DFS refuses to re-enter an in-progress node).
func criticalPath(g *Graph) []agent.ID {
	memo := make(map[agent.ID][]agent.ID, len(g.order))
	visiting := make(map[agent.ID]bool, len(g.order))

	var chainTo func(id agent.ID) []agent.ID
	chainTo = func(id agent.ID) []agent.ID {
		if chain, ok := memo[id]; ok {
			return chain
		}
		if visiting[id] {
			return nil // cycle guard
		}
		visiting[id] = true
		defer delete(visiting, id)

		var best []agent.ID
		for _, depID := range g.requires[id] {
			if chain := chainTo(depID); len(chain) > len(best) {
				best = chain
			}
		}

		chain := make([]agent.ID, 0, len(best)+1)
		chain = append(chain, best...)
		chain = append(chain, id)
		memo[id] = chain
		return chain
	}

	var longest []agent.ID
	for _, id := range g.order {
		if chain := chainTo(id); len(chain) > len(longest) {
			longest = chain
		}
	}
	return longest
}

func joinIDs(ids []agent.ID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
