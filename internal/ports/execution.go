package ports

import (
	"context"

	"github.com/archflow/archengine/internal/domain/flow"
)

// StepExecutor runs a single FlowStep to completion (success, failure, or
// timeout) without knowledge of the surrounding graph. It is implemented
// per StepKind (assistant, agent, tool, chain, custom) by the application
// layer's step dispatch table.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step *flow.FlowStep, input flow.Value) flow.StepResult
}

// DeterministicExecutor wraps a StepExecutor with retry, schema validation,
// output formatting, and timeout enforcement, per the engine's C5
// component. One instance serves every step; the executor assigns a fresh
// execution ID to each attempt itself.
type DeterministicExecutor interface {
	Execute(ctx context.Context, step *flow.FlowStep, input flow.Value) flow.StepResult
}

// ParallelExecutor runs a batch of independent steps under a bounded
// concurrency limit, preserving the caller's input ordering in its result
// slice regardless of completion order.
type ParallelExecutor interface {
	ExecuteAll(ctx context.Context, steps []*flow.FlowStep, inputs []flow.Value, failFast bool) ([]flow.StepResult, error)
}

// ExecutionManager drives a Flow from its entry step to completion,
// evaluating guards, following error-path edges, honoring fan-in joins, and
// checking for pause/cancel requests between ready-step batches.
type ExecutionManager interface {
	Run(ctx context.Context, f *flow.Flow, initialState *flow.FlowState) (*flow.FlowState, error)
}

// GuardEvaluator evaluates a Guard expression against the current flow
// variables and the upstream step's output, deciding whether a
// StepConnection fires.
type GuardEvaluator interface {
	Evaluate(ctx context.Context, guard flow.Guard, variables map[string]flow.Value, output flow.Value) (bool, error)
}
