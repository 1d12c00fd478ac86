package ports

import (
	"context"

	"github.com/archflow/archengine/internal/domain/flow"
)

// Tool is an invocable capability a TOOL-kind FlowStep delegates to. Tools
// are registered by name and looked up at execution time, mirroring the
// teacher repo's plugin registry pattern.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, input flow.Value) (flow.Value, error)
}

// ToolRegistry resolves tool names to implementations and detects
// registration-time conflicts.
type ToolRegistry interface {
	Register(tool Tool) error
	Lookup(name string) (Tool, bool)
	Names() []string
}
