package event

// ArchflowEvent is the single envelope type streamed to all external
// consumers (CLI, TUI, audit sink). Exactly one of the payload fields is
// populated, matching Envelope.Domain.
type ArchflowEvent struct {
	Envelope
	Chat        *ChatPayload
	Thinking    *ThinkingPayload
	Tool        *ToolPayload
	Interaction *InteractionPayload
	Audit       *AuditPayload
	System      *SystemPayload
}

// PayloadOf returns the populated payload as the generic Payload
// interface, or nil if none is set.
func (e *ArchflowEvent) PayloadOf() Payload {
	switch {
	case e.Chat != nil:
		return *e.Chat
	case e.Thinking != nil:
		return *e.Thinking
	case e.Tool != nil:
		return *e.Tool
	case e.Interaction != nil:
		return *e.Interaction
	case e.Audit != nil:
		return *e.Audit
	case e.System != nil:
		return *e.System
	default:
		return nil
	}
}
