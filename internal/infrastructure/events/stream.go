// Package events implements ports.EventPublisher: a fan-out publisher that
// stamps every ArchflowEvent with a uuid-based ID and delivers it to every
// subscribed channel, plus a background heartbeat ticker so idle consumers
// (the CLI stream, the TUI) can detect a dead connection.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archflow/archengine/internal/domain/event"
	"github.com/archflow/archengine/internal/ports"
)

// StreamPublisher implements ports.EventPublisher with buffered per-
// subscriber channels; a slow subscriber drops events rather than
// blocking Publish, since Publish must never stall the execution path.
type StreamPublisher struct {
	mu          sync.Mutex
	subscribers map[int]chan event.ArchflowEvent
	nextID      int
	bufferSize  int
	logger      ports.Logger
}

// NewStreamPublisher constructs a StreamPublisher with the given
// per-subscriber channel buffer size.
func NewStreamPublisher(bufferSize int, logger ports.Logger) *StreamPublisher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &StreamPublisher{
		subscribers: make(map[int]chan event.ArchflowEvent),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Publish stamps evt with an ID if absent and fans it out to every
// subscriber, dropping the event for any subscriber whose buffer is full.
func (p *StreamPublisher) Publish(ctx context.Context, evt event.ArchflowEvent) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixNano()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, ch := range p.subscribers {
		select {
		case ch <- evt:
		default:
			if p.logger != nil {
				p.logger.Warn(ctx, "dropping event for slow subscriber", "subscriber_id", id, "domain", evt.Domain, "type", evt.Type)
			}
		}
	}
}

// Subscribe registers a new consumer, returning its channel and an
// unsubscribe function the consumer must call when done.
func (p *StreamPublisher) Subscribe(ctx context.Context) (<-chan event.ArchflowEvent, func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	ch := make(chan event.ArchflowEvent, p.bufferSize)
	p.subscribers[id] = ch
	p.mu.Unlock()

	unsubscribe := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if existing, ok := p.subscribers[id]; ok {
			delete(p.subscribers, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Heartbeat starts a ticker emitting a SYSTEM/HEARTBEAT event every
// interval until ctx is cancelled.
func (p *StreamPublisher) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Publish(ctx, event.ArchflowEvent{
					Envelope: event.Envelope{
						Domain: event.DomainSystem,
						Type:   event.TypeHeartbeat,
					},
					System: &event.SystemPayload{Message: "heartbeat"},
				})
			}
		}
	}()
}

var _ ports.EventPublisher = (*StreamPublisher)(nil)
