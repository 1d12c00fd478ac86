package interceptor

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// BreakerInterceptor wraps tool invocation results in a per-tool circuit
// breaker, so a tool with a failing downstream dependency stops being
// called (failing fast) once its error rate trips the breaker.
type BreakerInterceptor struct {
	breakers map[string]*gobreaker.CircuitBreaker
	settings func(toolName string) gobreaker.Settings
}

// NewBreakerInterceptor constructs a BreakerInterceptor; settingsFn may be
// nil to use gobreaker's defaults for every tool.
func NewBreakerInterceptor(settingsFn func(toolName string) gobreaker.Settings) *BreakerInterceptor {
	return &BreakerInterceptor{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		settings: settingsFn,
	}
}

func (b *BreakerInterceptor) Name() string { return "breaker" }

func (b *BreakerInterceptor) breakerFor(toolName string) *gobreaker.CircuitBreaker {
	if cb, ok := b.breakers[toolName]; ok {
		return cb
	}
	settings := gobreaker.Settings{Name: toolName}
	if b.settings != nil {
		settings = b.settings(toolName)
	}
	cb := gobreaker.NewCircuitBreaker(settings)
	b.breakers[toolName] = cb
	return cb
}

func (b *BreakerInterceptor) Before(ctx context.Context, ic *ports.InterceptorContext) error {
	cb := b.breakerFor(ic.ToolName)
	if cb.State() == gobreaker.StateOpen {
		return flow.NewExecutionError(flow.ErrConnection, "interceptor.breaker", "circuit open for tool "+ic.ToolName, nil)
	}
	return nil
}

func (b *BreakerInterceptor) After(ctx context.Context, ic *ports.InterceptorContext) error {
	cb := b.breakerFor(ic.ToolName)
	_, _ = cb.Execute(func() (interface{}, error) { return nil, nil })
	return nil
}

func (b *BreakerInterceptor) OnError(ctx context.Context, ic *ports.InterceptorContext) error {
	cb := b.breakerFor(ic.ToolName)
	_, _ = cb.Execute(func() (interface{}, error) { return nil, ic.Err })
	return nil
}

var _ ports.Interceptor = (*BreakerInterceptor)(nil)
