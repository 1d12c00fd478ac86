package ports

import (
	"context"

	"github.com/archflow/archengine/internal/domain/conversation"
	"github.com/archflow/archengine/internal/domain/flow"
)

// ConversationManager owns the lifecycle of suspended, human-in-the-loop
// conversations: suspending a flow at an INTERACTION step, resuming it once
// a resume token and form data arrive, and sweeping expired conversations.
type ConversationManager interface {
	Suspend(ctx context.Context, flowID, flowExecutionID, stepID string, form []conversation.FormField, context map[string]flow.Value, ttlSeconds int64) (*conversation.SuspendedConversation, error)
	Resume(ctx context.Context, resumeToken string, formData map[string]flow.Value) (*conversation.SuspendedConversation, error)
	Cancel(ctx context.Context, conversationID string) error
	// Complete evicts a conversation from both indexes once the resuming
	// flow has consumed its submitted form data, reporting whether it was
	// present beforehand.
	Complete(ctx context.Context, conversationID string) (bool, error)
	Get(ctx context.Context, conversationID string) (*conversation.SuspendedConversation, error)
	GetByToken(ctx context.Context, resumeToken string) (*conversation.SuspendedConversation, error)
	CleanupExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) (ConversationStats, error)
}

// ConversationStats summarizes the conversation manager's current state,
// for monitoring dashboards and the CLI status command.
type ConversationStats struct {
	Waiting   int
	Resumed   int
	Cancelled int
	TimedOut  int
}
