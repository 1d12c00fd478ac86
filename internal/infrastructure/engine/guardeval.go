package engine

import (
	"context"

	"github.com/itchyny/gojq"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// GojqEvaluator implements ports.GuardEvaluator using gojq filters run
// against an input document of shape {"variables": ..., "output": ...}.
// An empty Guard always fires without invoking gojq; a non-empty Guard
// must produce exactly one truthy result to fire.
type GojqEvaluator struct {
	cache map[flow.Guard]*gojq.Code
}

// NewGojqEvaluator constructs an evaluator with an empty compiled-filter
// cache.
func NewGojqEvaluator() *GojqEvaluator {
	return &GojqEvaluator{cache: make(map[flow.Guard]*gojq.Code)}
}

func (e *GojqEvaluator) Evaluate(ctx context.Context, guard flow.Guard, variables map[string]flow.Value, output flow.Value) (bool, error) {
	if guard.IsUnconditional() {
		return true, nil
	}

	code, err := e.compile(guard)
	if err != nil {
		return false, flow.NewExecutionError(flow.ErrValidation, "engine.guard", "invalid guard expression", err).
			WithDetail("guard", string(guard))
	}

	input := map[string]interface{}{
		"variables": valueMapToNative(variables),
		"output":    output.Native(),
	}

	iter := code.RunWithContext(ctx, input)
	v, ok := iter.Next()
	if !ok {
		return false, nil
	}
	if err, isErr := v.(error); isErr {
		return false, flow.NewExecutionError(flow.ErrExecution, "engine.guard", "guard evaluation error", err).
			WithDetail("guard", string(guard))
	}
	if _, more := iter.Next(); more {
		return false, nil
	}
	return truthy(v), nil
}

func (e *GojqEvaluator) compile(guard flow.Guard) (*gojq.Code, error) {
	if code, ok := e.cache[guard]; ok {
		return code, nil
	}
	query, err := gojq.Parse(string(guard))
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}
	e.cache[guard] = code
	return code, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	default:
		return true
	}
}

func valueMapToNative(vals map[string]flow.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(vals))
	for k, v := range vals {
		out[k] = v.Native()
	}
	return out
}

var _ ports.GuardEvaluator = (*GojqEvaluator)(nil)
