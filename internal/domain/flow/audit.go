package flow

// AuditLog is a single, immutable entry in the flow's audit trail: a
// deep-copied snapshot of state at a point in time, optionally tied to the
// step whose execution produced it.
type AuditLog struct {
	FlowID    string
	Timestamp int64
	State     *FlowState
	StepID    string
	Result    *StepResult
}

// NewAuditLog snapshots state via Clone so the audit record can never be
// mutated by later changes to the live FlowState.
func NewAuditLog(ts int64, state *FlowState, stepID string, result *StepResult) AuditLog {
	entry := AuditLog{
		FlowID:    state.FlowID,
		Timestamp: ts,
		State:     state.Clone(),
		StepID:    stepID,
	}
	if result != nil {
		resCopy := *result
		entry.Result = &resCopy
	}
	return entry
}
