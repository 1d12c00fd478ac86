package ports

import (
	"context"

	"github.com/archflow/archengine/internal/domain/flow"
)

// InterceptorContext carries the data available to a tool interceptor at
// each hook point.
type InterceptorContext struct {
	StepID   string
	ToolName string
	Input    flow.Value
	Output   flow.Value
	Err      error
}

// Interceptor is one link in the tool invocation onion (C8): Before runs in
// registration order prior to the call, After runs in reverse order after a
// successful call, and OnError runs in reverse order when the call (or an
// earlier After) fails. An Interceptor that wants to short-circuit the
// chain returns a non-nil error from Before.
type Interceptor interface {
	Name() string
	Before(ctx context.Context, ic *InterceptorContext) error
	After(ctx context.Context, ic *InterceptorContext) error
	OnError(ctx context.Context, ic *InterceptorContext) error
}

// InterceptorChain invokes a Tool wrapped by an ordered list of
// Interceptors, preserving the before/after symmetry invariant: every
// Interceptor whose Before ran also has its After or OnError run exactly
// once, in reverse registration order.
type InterceptorChain interface {
	Invoke(ctx context.Context, tool Tool, stepID string, input flow.Value) (flow.Value, error)
}

// CacheStore backs a caching Interceptor; implementations may be in-memory
// or Redis-backed.
type CacheStore interface {
	Get(ctx context.Context, key string) (flow.Value, bool, error)
	Set(ctx context.Context, key string, value flow.Value, ttlSeconds int) error
}
