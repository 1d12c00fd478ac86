package flow

// ExecutionLevel groups step IDs that are mutually independent and may run
// concurrently, bounded by FlowConfiguration.MaxConcurrentSteps.
type ExecutionLevel struct {
	StepIDs []string
}

// ExecutionPlan is a static ordering hint derived from a Flow's
// unconditional connections. Nothing in the engine consumes it: the live
// Execution Manager evaluates guards and joins at runtime rather than
// following this plan, since guard outcomes are not known until a step's
// output exists, and the parallel executor's worker pool is sized from
// configuration.
type ExecutionPlan struct {
	FlowID string
	Levels []ExecutionLevel
}

// BuildExecutionPlan performs a Kahn's-algorithm leveling over the flow's
// non-error-path connections, treating guarded edges as present (since a
// plan is only a capacity/verification aid, not the authoritative runtime
// walk).
func BuildExecutionPlan(f *Flow) (*ExecutionPlan, error) {
	indegree := make(map[string]int, len(f.Steps))
	adj := make(map[string][]string, len(f.Steps))
	for id := range f.Steps {
		indegree[id] = 0
	}
	for id, step := range f.Steps {
		for _, conn := range step.Connections {
			if conn.OnError {
				continue
			}
			adj[id] = append(adj[id], conn.TargetStepID)
			indegree[conn.TargetStepID]++
		}
	}

	plan := &ExecutionPlan{FlowID: f.ID}
	remaining := len(f.Steps)
	var frontier []string
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		plan.Levels = append(plan.Levels, ExecutionLevel{StepIDs: frontier})
		remaining -= len(frontier)
		var next []string
		for _, id := range frontier {
			for _, target := range adj[id] {
				indegree[target]--
				if indegree[target] == 0 {
					next = append(next, target)
				}
			}
		}
		frontier = next
	}

	if remaining > 0 {
		return nil, NewExecutionError(ErrValidation, "plan", "flow graph contains a cycle; cannot build execution plan", nil)
	}
	return plan, nil
}
