package interceptor

import (
	"context"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// Chain runs a Tool invocation through an ordered onion of Interceptors:
// Before hooks fire in registration order, After/OnError hooks fire in
// reverse registration order, preserving the symmetry invariant that every
// interceptor whose Before ran gets exactly one matching After or OnError.
type Chain struct {
	interceptors []ports.Interceptor
}

// NewChain builds a Chain from interceptors in the order they should wrap
// the call (first registered is outermost).
func NewChain(interceptors ...ports.Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// Invoke runs tool through the chain. If any Before hook returns an error,
// the tool is never called and only the interceptors whose Before ran
// (including the one that failed) receive OnError, in reverse order.
func (c *Chain) Invoke(ctx context.Context, t ports.Tool, stepID string, input flow.Value) (flow.Value, error) {
	ic := &ports.InterceptorContext{StepID: stepID, ToolName: t.Name(), Input: input}

	ran := make([]ports.Interceptor, 0, len(c.interceptors))
	var beforeErr error
	for _, ivc := range c.interceptors {
		if err := ivc.Before(ctx, ic); err != nil {
			beforeErr = err
			ran = append(ran, ivc)
			break
		}
		ran = append(ran, ivc)
	}

	if beforeErr != nil {
		ic.Err = beforeErr
		c.runOnError(ctx, ran, ic)
		return flow.Null(), beforeErr
	}

	output, err := t.Invoke(ctx, input)
	ic.Output = output
	ic.Err = err

	if err != nil {
		c.runOnError(ctx, ran, ic)
		return flow.Null(), err
	}

	for i := len(ran) - 1; i >= 0; i-- {
		if afterErr := ran[i].After(ctx, ic); afterErr != nil {
			ic.Err = afterErr
			c.runOnError(ctx, ran[:i], ic)
			return flow.Null(), afterErr
		}
	}
	return output, nil
}

func (c *Chain) runOnError(ctx context.Context, ran []ports.Interceptor, ic *ports.InterceptorContext) {
	for i := len(ran) - 1; i >= 0; i-- {
		_ = ran[i].OnError(ctx, ic)
	}
}

var _ ports.InterceptorChain = (*Chain)(nil)
