package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

func TestMemoryStoreCreateRejectsDuplicateFlowID(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	initial := &flow.FlowState{FlowID: "f1", Status: flow.StatusPending}

	require.NoError(t, s.Create(ctx, initial))
	err := s.Create(ctx, initial)
	require.Error(t, err)
	execErr := err.(*flow.ExecutionError)
	assert.Equal(t, flow.ErrConflict, execErr.Type)
}

func TestMemoryStoreGetReturnsDeepCopyIsolatedFromLaterUpdates(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &flow.FlowState{
		FlowID:    "f1",
		Status:    flow.StatusPending,
		Variables: map[string]flow.Value{"count": flow.Int(1)},
	}))

	snapshot, err := s.Get(ctx, "f1")
	require.NoError(t, err)

	running := flow.StatusRunning
	_, err = s.Update(ctx, "f1", ports.StateUpdate{
		Status:    &running,
		Variables: map[string]flow.Value{"count": flow.Int(99)},
	})
	require.NoError(t, err)

	assert.Equal(t, flow.StatusPending, snapshot.Status, "a previously returned snapshot must not observe later updates")
	assert.Equal(t, flow.Int(1), snapshot.Variables["count"])
}

func TestMemoryStoreUpdateBumpsVersionAndMergesFields(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &flow.FlowState{FlowID: "f1", Status: flow.StatusPending}))

	running := flow.StatusRunning
	step := "step1"
	state, err := s.Update(ctx, "f1", ports.StateUpdate{
		Status:      &running,
		CurrentStep: &step,
		StepResult:  &flow.StepResult{StepID: "step1", Status: flow.StepCompleted},
	})
	require.NoError(t, err)
	assert.Equal(t, flow.StatusRunning, state.Status)
	assert.Equal(t, "step1", state.CurrentStep)
	assert.Equal(t, flow.StepCompleted, state.Completed["step1"])
	assert.Equal(t, int64(1), state.Version)
}

func TestMemoryStoreUpdateRejectsIllegalTransition(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &flow.FlowState{FlowID: "f1", Status: flow.StatusPending}))

	completed := flow.StatusCompleted
	_, err := s.Update(ctx, "f1", ports.StateUpdate{Status: &completed})
	require.Error(t, err, "pending cannot jump straight to completed")
}

func TestMemoryStoreGetUnknownFlowIsNotFound(t *testing.T) {
	s := NewMemoryStore(nil)
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	execErr := err.(*flow.ExecutionError)
	assert.Equal(t, flow.ErrNotFound, execErr.Type)
}

func TestMemoryStoreDeleteRemovesFlowAndItsAuditTrail(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &flow.FlowState{FlowID: "f1", Status: flow.StatusPending}))

	require.NoError(t, s.Delete(ctx, "f1"))
	_, err := s.Get(ctx, "f1")
	assert.Error(t, err)
}

func TestMemoryStoreAuditTrailRecordsEveryMutationInOrder(t *testing.T) {
	s := NewMemoryStore(nil)
	var tick int64
	s.now = func() time.Time { tick++; return time.Unix(tick, 0) }
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &flow.FlowState{FlowID: "f1", Status: flow.StatusPending}))
	running := flow.StatusRunning
	_, err := s.Update(ctx, "f1", ports.StateUpdate{Status: &running})
	require.NoError(t, err)
	completed := flow.StatusCompleted
	_, err = s.Update(ctx, "f1", ports.StateUpdate{Status: &completed})
	require.NoError(t, err)

	trail, err := s.AuditTrail(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, flow.StatusPending, trail[0].State.Status)
	assert.Equal(t, flow.StatusRunning, trail[1].State.Status)
	assert.Equal(t, flow.StatusCompleted, trail[2].State.Status)
	assert.True(t, trail[0].Timestamp < trail[1].Timestamp)
}

func TestMemoryStoreAuditTrailCopyIsIndependentOfFurtherMutation(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &flow.FlowState{FlowID: "f1", Status: flow.StatusPending}))

	trail, err := s.AuditTrail(ctx, "f1")
	require.NoError(t, err)
	firstLen := len(trail)

	running := flow.StatusRunning
	_, err = s.Update(ctx, "f1", ports.StateUpdate{Status: &running})
	require.NoError(t, err)

	assert.Equal(t, firstLen, len(trail), "a previously returned trail slice must not grow with later writes")
}
