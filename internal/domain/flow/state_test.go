package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowStatusLegalTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusRunning))
	assert.True(t, StatusRunning.CanTransition(StatusPaused))
	assert.True(t, StatusPaused.CanTransition(StatusRunning))
	assert.True(t, StatusSuspended.CanTransition(StatusRunning))
	assert.False(t, StatusCompleted.CanTransition(StatusRunning), "terminal statuses never transition")
	assert.False(t, StatusPending.CanTransition(StatusCompleted), "pending must become running first")
}

func TestFlowStateTransitionAppliesAndBumpsVersion(t *testing.T) {
	s := &FlowState{FlowID: "f1", Status: StatusPending, Version: 0}
	require.NoError(t, s.Transition(StatusRunning))
	assert.Equal(t, StatusRunning, s.Status)
	assert.Equal(t, int64(1), s.Version)
}

func TestFlowStateTransitionRejectsIllegalHop(t *testing.T) {
	s := &FlowState{FlowID: "f1", Status: StatusPending, Version: 0}
	err := s.Transition(StatusCompleted)
	require.Error(t, err)
	assert.Equal(t, StatusPending, s.Status, "rejected transition must not mutate state")
	assert.Equal(t, int64(0), s.Version)
}

func TestFlowStateCloneIsIndependent(t *testing.T) {
	original := &FlowState{
		FlowID:    "f1",
		Status:    StatusRunning,
		Variables: map[string]Value{"x": Int(1)},
		Completed: map[string]StepStatus{"a": StepCompleted},
	}

	clone := original.Clone()
	clone.Variables["x"] = Int(99)
	clone.Completed["a"] = StepFailed
	clone.Status = StatusFailed

	assert.Equal(t, StatusRunning, original.Status)
	orig, _ := original.Variables["x"].Int()
	assert.Equal(t, int64(1), orig)
	assert.Equal(t, StepCompleted, original.Completed["a"])
}

func TestFlowStateCloneNilIsNil(t *testing.T) {
	var s *FlowState
	assert.Nil(t, s.Clone())
}

func TestStepStatusIsTerminal(t *testing.T) {
	assert.True(t, StepCompleted.IsTerminal())
	assert.True(t, StepFailed.IsTerminal())
	assert.True(t, StepSkipped.IsTerminal())
	assert.False(t, StepRunning.IsTerminal())
	assert.False(t, StepPending.IsTerminal())
}
