package flow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/archengine/internal/domain/event"
	domainflow "github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/infrastructure/state"
)

// scriptedManager implements ports.ExecutionManager, letting tests control
// how long a run takes and what it returns, while observing cancellation.
type scriptedManager struct {
	delay      time.Duration
	finalState func(initial *domainflow.FlowState) *domainflow.FlowState
	failWith   error
	sawCancel  chan struct{}
}

func (m *scriptedManager) Run(ctx context.Context, f *domainflow.Flow, initial *domainflow.FlowState) (*domainflow.FlowState, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			if m.sawCancel != nil {
				close(m.sawCancel)
			}
			cancelled := initial.Clone()
			cancelled.Status = domainflow.StatusCancelled
			return cancelled, ctx.Err()
		}
	}
	if m.failWith != nil {
		failed := initial.Clone()
		failed.Status = domainflow.StatusFailed
		return failed, m.failWith
	}
	result := initial.Clone()
	if m.finalState != nil {
		result = m.finalState(initial)
	} else {
		result.Status = domainflow.StatusCompleted
	}
	return result, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.ArchflowEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, evt event.ArchflowEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Subscribe(ctx context.Context) (<-chan event.ArchflowEvent, func()) {
	ch := make(chan event.ArchflowEvent)
	close(ch)
	return ch, func() {}
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func testFlow(id string) *domainflow.Flow {
	return &domainflow.Flow{
		ID:          id,
		EntryStepID: "a",
		Steps:       map[string]*domainflow.FlowStep{"a": {ID: "a"}},
	}
}

func waitForStatus(t *testing.T, store *state.MemoryStore, flowID string, want domainflow.FlowStatus, timeout time.Duration) *domainflow.FlowState {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s, err := store.Get(context.Background(), flowID)
		require.NoError(t, err)
		if s.Status == want {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("flow %s never reached status %s", flowID, want)
	return nil
}

func TestEngineStartFlowRunsToCompletion(t *testing.T) {
	store := state.NewMemoryStore(nil)
	pub := &recordingPublisher{}
	e := NewEngine(&scriptedManager{}, store, pub, nil, 4)

	f := testFlow("f1")
	_, err := e.StartFlow(context.Background(), f, nil)
	require.NoError(t, err)

	waitForStatus(t, store, "f1", domainflow.StatusCompleted, time.Second)
	assert.Contains(t, pub.types(), event.TypeEnd)
}

func TestEngineStartFlowRejectsAtCapacityWithBusy(t *testing.T) {
	store := state.NewMemoryStore(nil)
	// A manager that never returns keeps the slot occupied.
	blocker := &scriptedManager{delay: time.Hour}
	e := NewEngine(blocker, store, nil, nil, 1)

	_, err := e.StartFlow(context.Background(), testFlow("f1"), nil)
	require.NoError(t, err)

	_, err = e.StartFlow(context.Background(), testFlow("f2"), nil)
	require.Error(t, err)
	execErr := err.(*domainflow.ExecutionError)
	assert.Equal(t, domainflow.ErrBusy, execErr.Type)
}

func TestEngineStartFlowPublishesFailureEventOnRunError(t *testing.T) {
	store := state.NewMemoryStore(nil)
	pub := &recordingPublisher{}
	failing := &scriptedManager{failWith: assertBoom}
	e := NewEngine(failing, store, pub, nil, 4)

	_, err := e.StartFlow(context.Background(), testFlow("f1"), nil)
	require.NoError(t, err)

	waitForStatus(t, store, "f1", domainflow.StatusFailed, time.Second)
	assert.Contains(t, pub.types(), event.TypeError)
}

func TestEngineCancelFlowCancelsRunningContext(t *testing.T) {
	store := state.NewMemoryStore(nil)
	sawCancel := make(chan struct{})
	m := &scriptedManager{delay: time.Hour, sawCancel: sawCancel}
	e := NewEngine(m, store, nil, nil, 4)

	_, err := e.StartFlow(context.Background(), testFlow("f1"), nil)
	require.NoError(t, err)

	require.NoError(t, e.CancelFlow(context.Background(), "f1"))

	select {
	case <-sawCancel:
	case <-time.After(time.Second):
		t.Fatal("cancelling the flow must cancel the manager's run context")
	}
}

func TestEnginePauseFlowMarksStoredStatusPaused(t *testing.T) {
	store := state.NewMemoryStore(nil)
	m := &scriptedManager{delay: time.Hour}
	e := NewEngine(m, store, nil, nil, 4)

	_, err := e.StartFlow(context.Background(), testFlow("f1"), nil)
	require.NoError(t, err)

	require.NoError(t, e.PauseFlow(context.Background(), "f1"))
	s, err := store.Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, domainflow.StatusPaused, s.Status)

	require.NoError(t, e.CancelFlow(context.Background(), "f1"))
}

func TestEngineGetFlowStatusDelegatesToStore(t *testing.T) {
	store := state.NewMemoryStore(nil)
	e := NewEngine(&scriptedManager{}, store, nil, nil, 4)

	_, err := e.StartFlow(context.Background(), testFlow("f1"), nil)
	require.NoError(t, err)

	s, err := e.GetFlowStatus(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", s.FlowID)
}

func TestEngineReleasesActiveSlotAfterCompletion(t *testing.T) {
	store := state.NewMemoryStore(nil)
	e := NewEngine(&scriptedManager{}, store, nil, nil, 1)

	_, err := e.StartFlow(context.Background(), testFlow("f1"), nil)
	require.NoError(t, err)

	waitForStatus(t, store, "f1", domainflow.StatusCompleted, time.Second)

	// The slot freed by f1's completion must admit a new run; release()
	// runs in a defer just after the status write above, so poll briefly
	// rather than assuming it already ran.
	deadline := time.Now().Add(time.Second)
	for {
		_, err = e.StartFlow(context.Background(), testFlow("f2"), nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, err)
}

func TestEngineResumeFlowReinvokesManagerRun(t *testing.T) {
	store := state.NewMemoryStore(nil)
	pub := &recordingPublisher{}

	var calls int32
	m := &scriptedManager{finalState: func(initial *domainflow.FlowState) *domainflow.FlowState {
		result := initial.Clone()
		if atomic.AddInt32(&calls, 1) == 1 {
			result.Status = domainflow.StatusPaused
			result.Pending = []domainflow.PendingStep{{StepID: "a", PathID: 1}}
		} else {
			result.Status = domainflow.StatusCompleted
		}
		return result
	}}
	e := NewEngine(m, store, pub, nil, 4)

	f := testFlow("f1")
	_, err := e.StartFlow(context.Background(), f, nil)
	require.NoError(t, err)

	waitForStatus(t, store, "f1", domainflow.StatusPaused, time.Second)

	res, err := e.ResumeFlow(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, domainflow.StatusRunning, res.Status)

	waitForStatus(t, store, "f1", domainflow.StatusCompleted, time.Second)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Contains(t, pub.types(), event.TypeResume)
}

func TestEngineResumeFlowUnknownFlowReturnsNotFound(t *testing.T) {
	store := state.NewMemoryStore(nil)
	e := NewEngine(&scriptedManager{}, store, nil, nil, 4)

	_, err := e.ResumeFlow(context.Background(), "missing")
	require.Error(t, err)
	execErr := err.(*domainflow.ExecutionError)
	assert.Equal(t, domainflow.ErrNotFound, execErr.Type)
}

type boomError string

func (e boomError) Error() string { return string(e) }

var assertBoom = boomError("boom")
