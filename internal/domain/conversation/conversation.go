package conversation

import "github.com/archflow/archengine/internal/domain/flow"

// Status enumerates the lifecycle of a suspended conversation awaiting
// human input before a flow can resume.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusResumed   Status = "RESUMED"
	StatusCancelled Status = "CANCELLED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// IsFinal reports whether the conversation will never change status again.
func (s Status) IsFinal() bool {
	switch s {
	case StatusResumed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// FormField describes one input the suspended flow is waiting on.
type FormField struct {
	Name     string
	Label    string
	Type     string
	Required bool
	Options  []string
}

// SuspendedConversation is the record created when a flow's INTERACTION
// step suspends execution pending a human response.
type SuspendedConversation struct {
	ConversationID       string
	ResumeToken          string
	FlowID               string
	FlowExecutionID      string
	StepID               string
	Form                 []FormField
	Context              map[string]flow.Value
	Status               Status
	CreatedAt            int64
	ExpiresAt            int64
	SubmittedAt          int64
	FormData             map[string]flow.Value
}

// IsExpired reports whether now is at or past ExpiresAt while the
// conversation is still open.
func (c *SuspendedConversation) IsExpired(nowUnix int64) bool {
	return !c.Status.IsFinal() && nowUnix >= c.ExpiresAt
}

// Resume validates the token and transitions the conversation, recording
// the submitted form data. Callers (the conversation manager) hold the
// lock; this method only enforces the state machine.
func (c *SuspendedConversation) Resume(token string, data map[string]flow.Value, nowUnix int64) error {
	if c.Status.IsFinal() {
		return flow.NewExecutionError(flow.ErrInvalidState, "conversation", "conversation already closed", nil)
	}
	if c.IsExpired(nowUnix) {
		c.Status = StatusTimedOut
		return flow.NewExecutionError(flow.ErrTimeout, "conversation", "conversation expired before resume", nil)
	}
	if token != c.ResumeToken {
		return flow.NewExecutionError(flow.ErrAuthorization, "conversation", "resume token mismatch", nil)
	}
	c.Status = StatusResumed
	c.FormData = data
	c.SubmittedAt = nowUnix
	return nil
}

// Cancel transitions the conversation to CANCELLED regardless of expiry.
func (c *SuspendedConversation) Cancel() error {
	if c.Status.IsFinal() {
		return flow.NewExecutionError(flow.ErrInvalidState, "conversation", "conversation already closed", nil)
	}
	c.Status = StatusCancelled
	return nil
}
