package engine

import (
	"context"
	"time"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// ToolDispatcher implements ports.StepExecutor by resolving every step
// kind (ASSISTANT/AGENT/TOOL/CHAIN/CUSTOM) to a named ports.Tool via the
// registry and invoking it through the interceptor chain. The step kind
// selects which adapter a deployment wires up behind that name; the
// dispatcher itself, like the Execution Manager above it, stays oblivious
// to the tag. Concrete LLM/vector-store adapters are out of the core's
// scope (SPEC_FULL.md §1 Non-goals) — they register here as ordinary Tools.
type ToolDispatcher struct {
	registry ports.ToolRegistry
	chain    ports.InterceptorChain
}

// NewToolDispatcher constructs a ToolDispatcher resolving tool names
// against registry and invoking them through chain.
func NewToolDispatcher(registry ports.ToolRegistry, chain ports.InterceptorChain) *ToolDispatcher {
	return &ToolDispatcher{registry: registry, chain: chain}
}

// ExecuteStep resolves step's tool name from its Config["tool"] field and
// invokes it through the interceptor chain, translating the outcome into a
// single-attempt StepResult (retry/backoff is the DeterministicExecutor's
// concern, one layer up).
func (d *ToolDispatcher) ExecuteStep(ctx context.Context, step *flow.FlowStep, input flow.Value) flow.StepResult {
	startedAt := time.Now()
	name, _ := step.Config["tool"].String()
	if name == "" {
		return flow.StepResult{
			StepID: step.ID,
			Status: flow.StepFailed,
			Error: flow.NewExecutionError(flow.ErrConfiguration, "engine.dispatch",
				"step "+step.ID+" has no configured tool name", nil),
		}
	}

	tool, ok := d.registry.Lookup(name)
	if !ok {
		return flow.StepResult{
			StepID: step.ID,
			Status: flow.StepFailed,
			Error: flow.NewExecutionError(flow.ErrNotFound, "engine.dispatch",
				"no tool registered for "+name, nil),
			DurationMS: time.Since(startedAt).Milliseconds(),
		}
	}

	output, err := d.chain.Invoke(ctx, tool, step.ID, input)
	if err != nil {
		return flow.StepResult{
			StepID:     step.ID,
			Status:     flow.StepFailed,
			Error:      flow.AsExecutionError("engine.dispatch", err),
			DurationMS: time.Since(startedAt).Milliseconds(),
		}
	}

	return flow.StepResult{
		StepID:     step.ID,
		Status:     flow.StepCompleted,
		Output:     output,
		DurationMS: time.Since(startedAt).Milliseconds(),
	}
}

var _ ports.StepExecutor = (*ToolDispatcher)(nil)
