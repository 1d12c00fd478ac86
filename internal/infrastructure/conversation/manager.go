package conversation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	domainconv "github.com/archflow/archengine/internal/domain/conversation"
	"github.com/archflow/archengine/internal/domain/event"
	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// Manager implements ports.ConversationManager with an in-process,
// mutex-guarded store dual-indexed by conversation ID and resume token.
// Resume tokens are generated with crypto/rand rather than uuid.NewString,
// since a resume token doubles as a bearer credential and must not be
// derivable or correlated the way a UUID's structure can be.
type Manager struct {
	mu      sync.Mutex
	byID    map[string]*domainconv.SuspendedConversation
	byToken map[string]*domainconv.SuspendedConversation
	now     func() time.Time
	events  ports.EventPublisher
}

// NewManager constructs an empty Manager. events may be nil, in which case
// suspend/resume/cancel transitions are silent.
func NewManager(events ports.EventPublisher) *Manager {
	return &Manager{
		byID:    make(map[string]*domainconv.SuspendedConversation),
		byToken: make(map[string]*domainconv.SuspendedConversation),
		now:     time.Now,
		events:  events,
	}
}

func (m *Manager) Suspend(ctx context.Context, flowID, flowExecutionID, stepID string, form []domainconv.FormField, context map[string]flow.Value, ttlSeconds int64) (*domainconv.SuspendedConversation, error) {
	token, err := generateResumeToken()
	if err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "conversation", "generate resume token", err)
	}

	now := m.now().Unix()
	conv := &domainconv.SuspendedConversation{
		ConversationID:  generateID(),
		ResumeToken:     token,
		FlowID:          flowID,
		FlowExecutionID: flowExecutionID,
		StepID:          stepID,
		Form:            form,
		Context:         context,
		Status:          domainconv.StatusWaiting,
		CreatedAt:       now,
		ExpiresAt:       now + ttlSeconds,
	}

	m.mu.Lock()
	m.byID[conv.ConversationID] = conv
	m.byToken[conv.ResumeToken] = conv
	m.mu.Unlock()

	m.publish(ctx, event.TypeSuspend, conv)
	return conv, nil
}

// Resume redeems a resume token. An unknown token, or one that has
// expired, is reported identically as "not found" — expired tokens are
// evicted from both indexes here rather than left for CleanupExpired, so a
// second Resume call against the same token never leaks whether it once
// existed (the bearer-token opacity invariant in SPEC_FULL.md §4.6).
func (m *Manager) Resume(ctx context.Context, resumeToken string, formData map[string]flow.Value) (*domainconv.SuspendedConversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.byToken[resumeToken]
	if !ok {
		return nil, flow.NewExecutionError(flow.ErrNotFound, "conversation", "unknown resume token", nil)
	}
	if conv.IsExpired(m.now().Unix()) {
		m.evictLocked(conv)
		return nil, flow.NewExecutionError(flow.ErrNotFound, "conversation", "unknown resume token", nil)
	}
	if err := conv.Resume(resumeToken, formData, m.now().Unix()); err != nil {
		return nil, err
	}
	m.publish(ctx, event.TypeResume, conv)
	return conv, nil
}

func (m *Manager) Cancel(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.byID[conversationID]
	if !ok {
		return flow.NewExecutionError(flow.ErrNotFound, "conversation", "unknown conversation id", nil)
	}
	if err := conv.Cancel(); err != nil {
		return err
	}
	m.evictLocked(conv)
	m.publish(ctx, event.TypeCancel, conv)
	return nil
}

// publish emits an INTERACTION event for the conversation's transition.
// Event delivery never raises to callers: the conversation manager's
// contract (SPEC_FULL.md §4.6, §7) is to log/isolate subscriber failures,
// not propagate them, and Publish itself never blocks the caller.
func (m *Manager) publish(ctx context.Context, typ event.Type, conv *domainconv.SuspendedConversation) {
	if m.events == nil {
		return
	}
	m.events.Publish(ctx, event.ArchflowEvent{
		Envelope: event.Envelope{
			Domain:      event.DomainInteraction,
			Type:        typ,
			ExecutionID: conv.FlowExecutionID,
		},
		Interaction: &event.InteractionPayload{
			ConversationID: conv.ConversationID,
			FormData:       conv.FormData,
		},
	})
}

// Complete evicts a completed conversation from both indexes, as §4.6
// requires once a flow has consumed its submitted form data and moved on.
// It reports whether the conversation was present to begin with.
func (m *Manager) Complete(ctx context.Context, conversationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.byID[conversationID]
	if !ok {
		return false, nil
	}
	m.evictLocked(conv)
	return true, nil
}

// evictLocked removes conv from both indexes. Callers must hold m.mu.
func (m *Manager) evictLocked(conv *domainconv.SuspendedConversation) {
	delete(m.byID, conv.ConversationID)
	delete(m.byToken, conv.ResumeToken)
}

func (m *Manager) Get(ctx context.Context, conversationID string) (*domainconv.SuspendedConversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.byID[conversationID]
	if !ok {
		return nil, flow.NewExecutionError(flow.ErrNotFound, "conversation", "unknown conversation id", nil)
	}
	cp := *conv
	return &cp, nil
}

func (m *Manager) GetByToken(ctx context.Context, resumeToken string) (*domainconv.SuspendedConversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.byToken[resumeToken]
	if !ok {
		return nil, flow.NewExecutionError(flow.ErrNotFound, "conversation", "unknown resume token", nil)
	}
	cp := *conv
	return &cp, nil
}

// CleanupExpired sweeps every still-open conversation whose ExpiresAt has
// passed, transitioning it to TIMED_OUT, and returns the count swept.
func (m *Manager) CleanupExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().Unix()
	var expired []*domainconv.SuspendedConversation
	for _, conv := range m.byID {
		if conv.IsExpired(now) {
			conv.Status = domainconv.StatusTimedOut
			expired = append(expired, conv)
		}
	}
	for _, conv := range expired {
		m.evictLocked(conv)
	}
	return len(expired), nil
}

func (m *Manager) Stats(ctx context.Context) (ports.ConversationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats ports.ConversationStats
	for _, conv := range m.byID {
		switch conv.Status {
		case domainconv.StatusWaiting:
			stats.Waiting++
		case domainconv.StatusResumed:
			stats.Resumed++
		case domainconv.StatusCancelled:
			stats.Cancelled++
		case domainconv.StatusTimedOut:
			stats.TimedOut++
		}
	}
	return stats, nil
}

// generateResumeToken produces a 256-bit random token, hex-encoded, well
// above the 128-bit entropy floor required for an unguessable bearer
// credential.
func generateResumeToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func generateID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("conv_%s", hex.EncodeToString(b[:]))
}

var _ ports.ConversationManager = (*Manager)(nil)
