package tool

import (
	"sort"
	"sync"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
	apperrors "github.com/archflow/archengine/pkg/errors"
)

// Registry implements ports.ToolRegistry with an in-memory map keyed by
// tool name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ports.Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ports.Tool)}
}

// Register stores a tool implementation keyed by its name, rejecting
// duplicates and nil tools.
func (r *Registry) Register(t ports.Tool) error {
	if t == nil {
		return apperrors.NewToolError("", flow.NewExecutionError(flow.ErrValidation, "tool", "tool is nil", nil))
	}
	name := t.Name()
	if name == "" {
		return apperrors.NewToolError("", flow.NewExecutionError(flow.ErrValidation, "tool", "tool name is required", nil))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return apperrors.NewToolError(name, flow.NewExecutionError(flow.ErrConflict, "tool", "tool already registered: "+name, nil))
	}
	r.tools[name] = t
	return nil
}

// Lookup resolves a tool name to its implementation.
func (r *Registry) Lookup(name string) (ports.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ ports.ToolRegistry = (*Registry)(nil)
