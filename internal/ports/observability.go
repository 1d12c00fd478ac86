package ports

import "context"

// MetricsCollector records quantitative observability signals. The interface is
// intentionally generic so adapters can back onto Prometheus, StatsD, or
// vendor-specific SDKs. The metrics emitted in this module are the tool
// invocation counters recorded by the metrics interceptor:
//   - archengine_tool_invocations_total{tool_name="..."}
//   - archengine_tool_invocations_succeeded_total{tool_name="..."}
//   - archengine_tool_invocations_failed_total{tool_name="..."}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

// Tracer manages distributed tracing spans. Span names follow the convention
// `<component>.<operation>` (e.g., `flow.execute`, `step.run`,
// `deterministic.invoke`, `interceptor.chain`). Adapters should propagate
// correlation IDs and integrate with the chosen tracing backend (OpenTelemetry).
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, Span)
	Inject(ctx context.Context, carrier interface{}) error
	Extract(ctx context.Context, carrier interface{}) (context.Context, error)
}

// Span represents an active tracing span.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(status SpanStatus, message string)
	End()
}

// SpanStatus provides strongly typed span result semantics.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
