package state

import (
	"context"
	"sync"
	"time"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/infrastructure/audit"
	"github.com/archflow/archengine/internal/ports"
)

type entry struct {
	mu    sync.Mutex
	state *flow.FlowState
	trail []flow.AuditLog
}

// MemoryStore is an in-process StateStore keeping one mutex-guarded entry
// per flowId. Every Get/Update returns a deep copy so callers can never
// observe or mutate another goroutine's in-flight changes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	sink    *audit.Sink
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore. sink may be nil to skip
// audit recording.
func NewMemoryStore(sink *audit.Sink) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		sink:    sink,
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, initial *flow.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[initial.FlowID]; exists {
		return flow.NewExecutionError(flow.ErrConflict, "state", "flow already exists: "+initial.FlowID, nil)
	}
	e := &entry{state: initial.Clone()}
	s.entries[initial.FlowID] = e
	s.recordAudit(e, "", nil)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, flowID string) (*flow.FlowState, error) {
	e, err := s.lookup(flowID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, flowID string, update ports.StateUpdate) (*flow.FlowState, error) {
	e, err := s.lookup(flowID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if update.Status != nil {
		if err := e.state.Transition(*update.Status); err != nil {
			return nil, err
		}
	}
	if update.Variables != nil {
		if e.state.Variables == nil {
			e.state.Variables = make(map[string]flow.Value, len(update.Variables))
		}
		for k, v := range update.Variables {
			e.state.Variables[k] = v.Clone()
		}
	}
	if update.CurrentStep != nil {
		e.state.CurrentStep = *update.CurrentStep
	}
	if update.StepResult != nil {
		if e.state.Completed == nil {
			e.state.Completed = make(map[string]flow.StepStatus)
		}
		e.state.Completed[update.StepResult.StepID] = update.StepResult.Status
	}
	if update.Error != nil {
		e.state.LastError = update.Error
	}
	e.state.Version++

	s.recordAudit(e, stepIDOf(update.StepResult), update.StepResult)
	return e.state.Clone(), nil
}

func (s *MemoryStore) Replace(ctx context.Context, flowID string, newState *flow.FlowState) (*flow.FlowState, error) {
	e, err := s.lookup(flowID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := newState.Clone()
	cp.FlowID = flowID
	cp.Version = e.state.Version + 1
	e.state = cp

	s.recordAudit(e, "", nil)
	return e.state.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, flowID)
	return nil
}

func (s *MemoryStore) AuditTrail(ctx context.Context, flowID string) ([]flow.AuditLog, error) {
	e, err := s.lookup(flowID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]flow.AuditLog, len(e.trail))
	copy(out, e.trail)
	return out, nil
}

func (s *MemoryStore) lookup(flowID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[flowID]
	if !ok {
		return nil, flow.NewExecutionError(flow.ErrNotFound, "state", "flow not found: "+flowID, nil)
	}
	return e, nil
}

func (s *MemoryStore) recordAudit(e *entry, stepID string, result *flow.StepResult) {
	ts := s.now().UnixNano()
	log := flow.NewAuditLog(ts, e.state, stepID, result)
	e.trail = append(e.trail, log)
	if s.sink != nil {
		s.sink.Record(log)
	}
}

func stepIDOf(r *flow.StepResult) string {
	if r == nil {
		return ""
	}
	return r.StepID
}

var _ ports.StateStore = (*MemoryStore)(nil)
