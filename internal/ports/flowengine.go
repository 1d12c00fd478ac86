package ports

import (
	"context"

	"github.com/archflow/archengine/internal/domain/event"
	"github.com/archflow/archengine/internal/domain/flow"
)

// FlowEngine is the top-level application port: it admits new flow runs,
// rejecting them with a BUSY ExecutionError once the active-run registry is
// at FlowConfiguration-derived capacity (Open Question 3: reject rather
// than queue), and exposes lifecycle controls over runs already admitted.
type FlowEngine interface {
	StartFlow(ctx context.Context, f *flow.Flow, input map[string]flow.Value) (*flow.FlowResult, error)
	ResumeFlow(ctx context.Context, flowID string) (*flow.FlowResult, error)
	PauseFlow(ctx context.Context, flowID string) error
	CancelFlow(ctx context.Context, flowID string) error
	GetFlowStatus(ctx context.Context, flowID string) (*flow.FlowState, error)
	GetActiveFlows(ctx context.Context) ([]string, error)
}

// ConfigLoader loads and validates a Flow definition from its external
// representation (YAML DSL).
type ConfigLoader interface {
	LoadFlow(ctx context.Context, path string) (*flow.Flow, error)
}

// EventPublisher emits ArchflowEvents to every subscribed consumer (CLI
// stream, TUI, audit sink). Publish must never block the calling
// execution path; slow consumers are the publisher implementation's
// problem, not the caller's.
type EventPublisher interface {
	Publish(ctx context.Context, evt event.ArchflowEvent)
	Subscribe(ctx context.Context) (<-chan event.ArchflowEvent, func())
}
