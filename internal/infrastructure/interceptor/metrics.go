package interceptor

import (
	"context"

	"github.com/archflow/archengine/internal/ports"
)

// MetricsInterceptor records invocation counts through the
// MetricsCollector port.
type MetricsInterceptor struct {
	collector ports.MetricsCollector
}

// NewMetricsInterceptor constructs a MetricsInterceptor.
func NewMetricsInterceptor(collector ports.MetricsCollector) *MetricsInterceptor {
	return &MetricsInterceptor{collector: collector}
}

func (m *MetricsInterceptor) Name() string { return "metrics" }

func (m *MetricsInterceptor) Before(ctx context.Context, ic *ports.InterceptorContext) error {
	if m.collector != nil {
		m.collector.IncCounter(ctx, "archengine_tool_invocations_total", map[string]string{"tool_name": ic.ToolName})
	}
	return nil
}

func (m *MetricsInterceptor) After(ctx context.Context, ic *ports.InterceptorContext) error {
	if m.collector != nil {
		m.collector.IncCounter(ctx, "archengine_tool_invocations_succeeded_total", map[string]string{"tool_name": ic.ToolName})
	}
	return nil
}

func (m *MetricsInterceptor) OnError(ctx context.Context, ic *ports.InterceptorContext) error {
	if m.collector != nil {
		m.collector.IncCounter(ctx, "archengine_tool_invocations_failed_total", map[string]string{"tool_name": ic.ToolName})
	}
	return nil
}

var _ ports.Interceptor = (*MetricsInterceptor)(nil)
