package ports

import (
	"context"

	"github.com/archflow/archengine/internal/domain/flow"
)

// StateUpdate describes a mutation to apply to a FlowState. Nil fields
// leave the corresponding part of state untouched. Variables are merged
// key by key into the existing map, so an empty map changes nothing and no
// variable can be removed this way; a non-nil CurrentStep pointing at ""
// clears the current step.
type StateUpdate struct {
	Status      *flow.FlowStatus
	Variables   map[string]flow.Value
	CurrentStep *string
	StepResult  *flow.StepResult
	Error       *flow.ExecutionError
}

// StateStore owns the authoritative FlowState for every in-flight flow. All
// reads return deep copies; no caller ever holds a pointer into the store's
// internal state. Implementations must serialize concurrent updates to the
// same flowId while allowing updates to different flows to proceed in
// parallel.
type StateStore interface {
	// Create registers a brand-new flow run and returns an error if flowId
	// is already present.
	Create(ctx context.Context, initial *flow.FlowState) error

	// Get returns a deep-copied snapshot of the named flow's state.
	Get(ctx context.Context, flowID string) (*flow.FlowState, error)

	// Update applies a StateUpdate atomically under the flow's lock and
	// returns the resulting snapshot.
	Update(ctx context.Context, flowID string, update StateUpdate) (*flow.FlowState, error)

	// Replace overwrites flowId's stored state wholesale with state,
	// bumping Version and recording an audit snapshot the same way Update
	// does. Used by the Execution Manager's caller to fold back a full
	// post-run FlowState (variables, metrics, path, pending steps) in one
	// step instead of threading every mutated field through StateUpdate.
	Replace(ctx context.Context, flowID string, state *flow.FlowState) (*flow.FlowState, error)

	// Delete removes a flow's state once its run is fully archived.
	Delete(ctx context.Context, flowID string) error

	// AuditTrail returns the ordered audit log entries recorded for flowID.
	AuditTrail(ctx context.Context, flowID string) ([]flow.AuditLog, error)
}
