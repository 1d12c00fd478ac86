package event

import "github.com/archflow/archengine/internal/domain/flow"

// ChatPayload carries an assistant message delta or completed message.
type ChatPayload struct {
	Text string
}

// ThinkingPayload carries a reasoning trace fragment.
type ThinkingPayload struct {
	Text string
}

// ToolPayload carries tool invocation lifecycle data.
type ToolPayload struct {
	ToolName string
	Input    flow.Value
	Output   flow.Value
	Error    *flow.ExecutionError
}

// InteractionPayload carries suspend/form/resume/cancel data for a
// conversation.
type InteractionPayload struct {
	ConversationID string
	Form           []string
	FormData       map[string]flow.Value
}

// AuditPayload carries a trace/span/metric/log observability record.
type AuditPayload struct {
	Name   string
	Fields map[string]flow.Value
}

// SystemPayload carries connection lifecycle and heartbeat notices.
type SystemPayload struct {
	Message string
}

// Payload is implemented by every concrete payload type above; it exists
// purely to document the closed set returned by ArchflowEvent.PayloadOf.
type Payload interface {
	isPayload()
}

func (ChatPayload) isPayload()        {}
func (ThinkingPayload) isPayload()    {}
func (ToolPayload) isPayload()        {}
func (InteractionPayload) isPayload() {}
func (AuditPayload) isPayload()       {}
func (SystemPayload) isPayload()      {}
