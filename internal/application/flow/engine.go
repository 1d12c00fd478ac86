package flow

import (
	"context"
	"sync"

	"github.com/archflow/archengine/internal/domain/event"
	domainflow "github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/infrastructure/engine"
	"github.com/archflow/archengine/internal/ports"
)

// Engine implements ports.FlowEngine: it admits new flow runs into an
// active-run registry bounded by maxConcurrentFlows, rejecting admission
// with a BUSY ExecutionError once full rather than queuing (Open Question
// 3), and delegates the actual graph walk to an ExecutionManager.
type Engine struct {
	manager            ports.ExecutionManager
	store              ports.StateStore
	events             ports.EventPublisher
	logger             ports.Logger
	maxConcurrentFlows int

	mu     sync.Mutex
	active map[string]context.CancelFunc
	paused map[string]bool
	flows  map[string]*domainflow.Flow
}

// NewEngine constructs an Engine.
func NewEngine(manager ports.ExecutionManager, store ports.StateStore, events ports.EventPublisher, logger ports.Logger, maxConcurrentFlows int) *Engine {
	return &Engine{
		manager:            manager,
		store:              store,
		events:             events,
		logger:             logger,
		maxConcurrentFlows: maxConcurrentFlows,
		active:             make(map[string]context.CancelFunc),
		paused:             make(map[string]bool),
		flows:              make(map[string]*domainflow.Flow),
	}
}

// StartFlow admits a new run of f, seeding variables from input. It
// returns a BUSY ExecutionError immediately if the active-run registry is
// already at capacity.
func (e *Engine) StartFlow(ctx context.Context, f *domainflow.Flow, input map[string]domainflow.Value) (*domainflow.FlowResult, error) {
	e.mu.Lock()
	if len(e.active) >= e.maxConcurrentFlows {
		e.mu.Unlock()
		return nil, domainflow.NewExecutionError(domainflow.ErrBusy, "application.flow", "engine at capacity", nil).
			WithDetail("max_concurrent_flows", e.maxConcurrentFlows)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.active[f.ID] = cancel
	e.flows[f.ID] = f
	e.mu.Unlock()

	initial := &domainflow.FlowState{
		FlowID:      f.ID,
		Status:      domainflow.StatusPending,
		Variables:   input,
		CurrentStep: f.EntryStepID,
	}
	if err := e.store.Create(ctx, initial); err != nil {
		e.release(f.ID)
		return nil, err
	}

	running := domainflow.StatusRunning
	state, err := e.store.Update(ctx, f.ID, ports.StateUpdate{Status: &running})
	if err != nil {
		e.release(f.ID)
		return nil, err
	}

	e.publish(ctx, f.ID, event.TypeStart, "flow started")

	go e.runToCompletion(runCtx, f, state)

	return domainflow.NewFlowResult(state), nil
}

func (e *Engine) runToCompletion(ctx context.Context, f *domainflow.Flow, initial *domainflow.FlowState) {
	defer e.release(f.ID)

	ctx = engine.WithPauseCheck(ctx, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.paused[f.ID]
	})

	final, err := e.manager.Run(ctx, f, initial)
	if err != nil {
		e.publish(ctx, f.ID, event.TypeError, "flow failed")
		if e.logger != nil {
			e.logger.Error(ctx, "flow execution failed", "flow_id", f.ID, "error", err)
		}
	} else if final.Status == domainflow.StatusPaused {
		e.publish(ctx, f.ID, event.TypeSuspend, "flow paused")
	} else {
		e.publish(ctx, f.ID, event.TypeEnd, "flow completed")
	}

	// Replace folds back the whole state the run produced (variables,
	// metrics, path, pending steps) in one step; Run's caller is the only
	// one who ever sees the full in-memory FlowState it returns, so a
	// partial StateUpdate here would silently drop everything but Status.
	if _, replaceErr := e.store.Replace(ctx, f.ID, final); replaceErr != nil && e.logger != nil {
		e.logger.Error(ctx, "failed to persist final flow state", "flow_id", f.ID, "error", replaceErr)
	}
}

// ResumeFlow transitions a paused flow back to running and re-launches the
// graph walk from the frontier it paused at (state.Pending), re-registering
// a cancel func so PauseFlow/CancelFlow work on the resumed run.
func (e *Engine) ResumeFlow(ctx context.Context, flowID string) (*domainflow.FlowResult, error) {
	e.mu.Lock()
	f, ok := e.flows[flowID]
	e.mu.Unlock()
	if !ok {
		return nil, domainflow.NewExecutionError(domainflow.ErrNotFound, "application.flow", "flow not found: "+flowID, nil)
	}

	running := domainflow.StatusRunning
	state, err := e.store.Update(ctx, flowID, ports.StateUpdate{Status: &running})
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.active[flowID] = cancel
	delete(e.paused, flowID)
	e.mu.Unlock()

	e.publishResume(ctx, flowID)

	go e.runToCompletion(runCtx, f, state)

	return domainflow.NewFlowResult(state), nil
}

func (e *Engine) publishResume(ctx context.Context, flowID string) {
	if e.events == nil {
		return
	}
	e.events.Publish(ctx, event.ArchflowEvent{
		Envelope: event.Envelope{
			Domain:      event.DomainInteraction,
			Type:        event.TypeResume,
			ExecutionID: flowID,
		},
		Interaction: &event.InteractionPayload{ConversationID: flowID},
	})
}

// PauseFlow marks a running flow as paused; the execution manager observes
// this on its next ready-step check.
func (e *Engine) PauseFlow(ctx context.Context, flowID string) error {
	e.mu.Lock()
	e.paused[flowID] = true
	e.mu.Unlock()
	paused := domainflow.StatusPaused
	_, err := e.store.Update(ctx, flowID, ports.StateUpdate{Status: &paused})
	return err
}

// CancelFlow cancels a flow's run context and marks it cancelled.
func (e *Engine) CancelFlow(ctx context.Context, flowID string) error {
	e.mu.Lock()
	cancel, ok := e.active[flowID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	cancelled := domainflow.StatusCancelled
	_, err := e.store.Update(ctx, flowID, ports.StateUpdate{Status: &cancelled})
	return err
}

func (e *Engine) GetFlowStatus(ctx context.Context, flowID string) (*domainflow.FlowState, error) {
	return e.store.Get(ctx, flowID)
}

func (e *Engine) GetActiveFlows(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.active))
	for id := range e.active {
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) release(flowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, flowID)
	delete(e.paused, flowID)
}

func (e *Engine) publish(ctx context.Context, flowID string, typ event.Type, message string) {
	if e.events == nil {
		return
	}
	e.events.Publish(ctx, event.ArchflowEvent{
		Envelope: event.Envelope{
			Domain:      event.DomainSystem,
			Type:        typ,
			ExecutionID: flowID,
		},
		System: &event.SystemPayload{Message: message},
	})
}

var _ ports.FlowEngine = (*Engine)(nil)
