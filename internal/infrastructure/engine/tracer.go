// Package engine implements the application-facing execution machinery:
// guard evaluation, the runtime graph walk, bounded-parallel execution, the
// deterministic executor wrapper, and the OpenTelemetry/Prometheus
// observability adapters the rest of the package emits through.
package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/archflow/archengine/internal/ports"
)

// OtelTracer adapts an OpenTelemetry tracer to ports.Tracer, following the
// same thin-wrapper shape as a conventional observer package: a scoped
// otel.Tracer injected at construction, Start/SetAttr/End delegating
// straight through.
type OtelTracer struct {
	inner oteltrace.Tracer
}

// NewOtelTracer builds an OtelTracer scoped under the given name.
func NewOtelTracer(scopeName string) *OtelTracer {
	return &OtelTracer{inner: otel.Tracer(scopeName)}
}

func (t *OtelTracer) StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, ports.Span) {
	ctx, span := t.inner.Start(ctx, name)
	s := &otelSpan{span: span}
	s.SetAttributes(attributes...)
	return ctx, s
}

func (t *OtelTracer) Inject(ctx context.Context, carrier interface{}) error {
	return nil
}

func (t *OtelTracer) Extract(ctx context.Context, carrier interface{}) (context.Context, error) {
	return ctx, nil
}

type otelSpan struct {
	span oteltrace.Span
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttr(key, value))
}

func (s *otelSpan) SetAttributes(kvs ...interface{}) {
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		s.span.SetAttributes(toAttr(key, kvs[i+1]))
	}
}

func (s *otelSpan) SetStatus(status ports.SpanStatus, message string) {
	if status == ports.SpanStatusError {
		s.span.RecordError(nil)
	}
}

func (s *otelSpan) End() {
	s.span.End()
}

func toAttr(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, "")
	}
}

var _ ports.Tracer = (*OtelTracer)(nil)
var _ ports.Span = (*otelSpan)(nil)
