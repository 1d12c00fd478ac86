package flow

import "fmt"

// FlowStatus enumerates the lifecycle states of a running flow.
type FlowStatus string

const (
	StatusPending   FlowStatus = "PENDING"
	StatusRunning   FlowStatus = "RUNNING"
	StatusPaused    FlowStatus = "PAUSED"
	StatusSuspended FlowStatus = "SUSPENDED"
	StatusCompleted FlowStatus = "COMPLETED"
	StatusFailed    FlowStatus = "FAILED"
	StatusCancelled FlowStatus = "CANCELLED"
)

// IsFinal reports whether the flow has reached a terminal state and will
// never transition again.
func (s FlowStatus) IsFinal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanContinue reports whether the execution manager may schedule further
// steps while the flow is in this status.
func (s FlowStatus) CanContinue() bool {
	return s == StatusRunning
}

// legalTransitions enumerates the state machine; a transition not present
// here is rejected by Flow State's CAS-style update path.
var legalTransitions = map[FlowStatus]map[FlowStatus]bool{
	StatusPending: {
		StatusRunning:   true,
		StatusCancelled: true,
	},
	StatusRunning: {
		StatusPaused:    true,
		StatusSuspended: true,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusPaused: {
		StatusRunning:   true,
		StatusCancelled: true,
	},
	StatusSuspended: {
		StatusRunning:   true,
		StatusCancelled: true,
		StatusFailed:    true,
	},
}

// CanTransition reports whether moving from s to next is a legal state
// transition.
func (s FlowStatus) CanTransition(next FlowStatus) bool {
	if s.IsFinal() {
		return false
	}
	return legalTransitions[s][next]
}

// FlowState is the mutable, versioned snapshot of a running flow, owned
// exclusively by the State Manager and never mutated in place by callers.
type FlowState struct {
	FlowID      string
	Status      FlowStatus
	Variables   map[string]Value
	CurrentStep string
	Completed   map[string]StepStatus
	LastError   *ExecutionError
	Version     int64

	// Metrics accumulates this run's append-only execution history (see
	// spec §3's FlowMetrics invariant).
	Metrics FlowMetrics
	// Path is the execution-path arena tracking the tree of branches this
	// run has walked (spec §3's ExecutionPath). Nil until the first Run
	// call initializes it.
	Path *ExecutionPath
	// Pending holds the ready-but-undispatched steps captured at the
	// moment the run paused, so the Execution Manager can resume the walk
	// from there instead of restarting at the entry step.
	Pending []PendingStep
}

// Clone returns a deep copy suitable for handing to a caller outside the
// state manager's lock.
func (s *FlowState) Clone() *FlowState {
	if s == nil {
		return nil
	}
	cp := &FlowState{
		FlowID:      s.FlowID,
		Status:      s.Status,
		CurrentStep: s.CurrentStep,
		Version:     s.Version,
		Metrics:     s.Metrics.Clone(),
		Path:        s.Path.Clone(),
	}
	if s.Variables != nil {
		cp.Variables = make(map[string]Value, len(s.Variables))
		for k, v := range s.Variables {
			cp.Variables[k] = v.Clone()
		}
	}
	if s.Completed != nil {
		cp.Completed = make(map[string]StepStatus, len(s.Completed))
		for k, v := range s.Completed {
			cp.Completed[k] = v
		}
	}
	if s.LastError != nil {
		errCopy := *s.LastError
		cp.LastError = &errCopy
	}
	if s.Pending != nil {
		cp.Pending = make([]PendingStep, len(s.Pending))
		copy(cp.Pending, s.Pending)
	}
	return cp
}

// Transition validates and applies a status change, bumping Version.
func (s *FlowState) Transition(next FlowStatus) error {
	if !s.Status.CanTransition(next) {
		return NewExecutionError(ErrInvalidState, "state",
			fmt.Sprintf("cannot transition flow %q from %s to %s", s.FlowID, s.Status, next), nil)
	}
	s.Status = next
	s.Version++
	return nil
}
