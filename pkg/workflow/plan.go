package workflow

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/probaah/probaah/pkg/domain"
)

// plan is a validated, cycle-free view of a step list.
type plan struct {
	steps map[string]domain.WorkflowStep
	order []string // topological, used for deterministic tie-breaking
	rank  map[string]int
}

// buildPlan validates the step list before anything runs: IDs must be unique,
// dependencies must name existing steps, every kind must have a runner, and
// the dependency graph must be acyclic. Any violation is an orchestration
// failure and no step is ever started.
func buildPlan(steps []domain.WorkflowStep, registry Registry) (*plan, *domain.Failure) {
	if len(steps) == 0 {
		return nil, domain.Failf(domain.FailOrchestration, "workflow has no steps")
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	byID := make(map[string]domain.WorkflowStep, len(steps))

	for _, step := range steps {
		if step.ID == "" {
			return nil, domain.Failf(domain.FailOrchestration, "workflow step without an ID")
		}
		if _, dup := byID[step.ID]; dup {
			return nil, domain.Failf(domain.FailOrchestration, "duplicate step ID %q", step.ID)
		}
		if _, ok := registry[step.Kind]; !ok {
			return nil, domain.Failf(domain.FailOrchestration, "step %q has unknown kind %q", step.ID, step.Kind)
		}
		byID[step.ID] = step
		if err := g.AddVertex(step.ID); err != nil {
			return nil, domain.Failf(domain.FailOrchestration, "step %q: %v", step.ID, err)
		}
	}

	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, domain.Failf(domain.FailOrchestration,
					"step %q depends on unknown step %q", step.ID, dep)
			}
			if err := g.AddEdge(dep, step.ID); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, domain.Failf(domain.FailOrchestration,
						"dependency cycle through steps %q and %q", dep, step.ID)
				}
				if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					return nil, domain.Failf(domain.FailOrchestration,
						"step %q dependency %q: %v", step.ID, dep, err)
				}
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, domain.Failf(domain.FailOrchestration, "dependency graph: %v", err)
	}

	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	return &plan{steps: byID, order: order, rank: rank}, nil
}

// conflictGroups partitions ready steps into groups that must run serially
// because they touch a common artifact ID, as input or output. Groups are
// independent of each other and may run concurrently.
func conflictGroups(ready []domain.WorkflowStep) [][]domain.WorkflowStep {
	owner := make(map[string]int) // artifact ID -> group index
	groups := make([][]domain.WorkflowStep, 0, len(ready))

	for _, step := range ready {
		ids := make([]string, 0, len(step.Inputs)+len(step.Outputs))
		ids = append(ids, step.Inputs...)
		ids = append(ids, step.Outputs...)

		target := -1
		for _, id := range ids {
			idx, ok := owner[id]
			if !ok {
				continue
			}
			if target == -1 {
				target = idx
				continue
			}
			if idx != target {
				// The step bridges two groups: merge them.
				groups[target] = append(groups[target], groups[idx]...)
				groups[idx] = nil
				for k, v := range owner {
					if v == idx {
						owner[k] = target
					}
				}
			}
		}
		if target == -1 {
			target = len(groups)
			groups = append(groups, nil)
		}
		groups[target] = append(groups[target], step)
		for _, id := range ids {
			owner[id] = target
		}
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g) != 0 {
			out = append(out, g)
		}
	}
	return out
}

func dependencySummary(step domain.WorkflowStep, results map[string]*domain.StepResult) string {
	for _, dep := range step.DependsOn {
		res, ok := results[dep]
		if !ok || res.Status == domain.StatusSucceeded {
			continue
		}
		return fmt.Sprintf("dependency %q %s", dep, res.Status)
	}
	return ""
}
