package engine

import (
	"context"
	"time"

	"github.com/archflow/archengine/internal/domain/event"
	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// Manager implements ports.ExecutionManager: a runtime graph walk that
// evaluates guards and follows error-path edges as steps complete, rather
// than following the static Kahn's-algorithm leveling ExecutionPlan does
// (guard outcomes are only known once a step's output exists).
//
// A step with more than one incoming connection is a join: it is only
// added to the ready frontier once every incoming connection has either
// fired (its guard evaluated true) or been definitively skipped (its
// guard evaluated false), and at least one incoming connection fired.
type Manager struct {
	executor  ports.DeterministicExecutor
	parallel  ports.ParallelExecutor
	guards    ports.GuardEvaluator
	publisher ports.EventPublisher
	logger    ports.Logger
	tracer    ports.Tracer
}

type pauseCheckKey struct{}

// WithPauseCheck attaches a per-run pause predicate to ctx; Run polls it
// between ready-step batches and transitions to PAUSED while it returns
// true. Carried on context (rather than a Manager field) since one Manager
// instance is shared across concurrently running flows.
func WithPauseCheck(ctx context.Context, check func() bool) context.Context {
	return context.WithValue(ctx, pauseCheckKey{}, check)
}

func pauseCheckFrom(ctx context.Context) func() bool {
	if check, ok := ctx.Value(pauseCheckKey{}).(func() bool); ok {
		return check
	}
	return nil
}

// ManagerOption configures optional collaborators on a Manager, mirroring
// the teacher's functional-options executor construction.
type ManagerOption func(*Manager)

func WithManagerPublisher(p ports.EventPublisher) ManagerOption {
	return func(m *Manager) { m.publisher = p }
}

func WithManagerLogger(l ports.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithManagerTracer attaches a distributed tracer; Run wraps each flow
// execution in a "flow.execute" span and each step batch in a "step.run"
// span when one is configured.
func WithManagerTracer(t ports.Tracer) ManagerOption {
	return func(m *Manager) { m.tracer = t }
}

// NewManager constructs a Manager.
func NewManager(executor ports.DeterministicExecutor, parallel ports.ParallelExecutor, guards ports.GuardEvaluator, opts ...ManagerOption) *Manager {
	m := &Manager{executor: executor, parallel: parallel, guards: guards}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type joinState struct {
	incoming   int
	resolved   int
	fired      int
	lastParent flow.PathID
}

// Run walks f from its entry step, mutating and returning a FlowState.
// The caller is responsible for persisting the returned state through a
// StateStore; Run itself only operates on the in-memory copy it was
// given.
func (m *Manager) Run(ctx context.Context, f *flow.Flow, initialState *flow.FlowState) (*flow.FlowState, error) {
	if m.logger != nil {
		m.logger.Info(ctx, "flow run starting", "flow_id", f.ID)
	}
	m.publish(ctx, event.DomainSystem, event.TypeStart, f.ID, &event.SystemPayload{Message: "flow started"})
	if m.tracer != nil {
		var span ports.Span
		ctx, span = m.tracer.StartSpan(ctx, "flow.execute", "flow_id", f.ID)
		defer span.End()
	}
	defer func() {
		if m.logger != nil {
			m.logger.Info(ctx, "flow run finished", "flow_id", f.ID)
		}
	}()

	state := initialState.Clone()
	if state.Variables == nil {
		state.Variables = make(map[string]flow.Value)
	}
	if state.Completed == nil {
		state.Completed = make(map[string]flow.StepStatus)
	}

	incomingCounts := f.IncomingCounts()
	joins := make(map[string]*joinState, len(f.Steps))
	for id, count := range incomingCounts {
		if count > 1 {
			joins[id] = &joinState{incoming: count}
		}
	}

	// leafFor tracks, for every step currently in flight or about to be
	// dispatched, the ExecutionPath node its eventual children should fork
	// from. A fresh run seeds it with the entry step's root node; a
	// resumed run rebuilds it from the Pending steps the previous Run call
	// persisted at the moment it paused.
	leafFor := make(map[string]flow.PathID)
	var frontier []string
	switch {
	case len(state.Pending) > 0:
		for _, p := range state.Pending {
			leafFor[p.StepID] = p.PathID
			frontier = append(frontier, p.StepID)
		}
	case state.Path == nil:
		state.Path = flow.NewExecutionPath(f.ID, f.EntryStepID)
		leafFor[f.EntryStepID] = 1
		frontier = []string{f.EntryStepID}
	default:
		leafFor[f.EntryStepID] = 1
		frontier = []string{f.EntryStepID}
	}
	state.Pending = nil

	if state.Metrics.StartedAt == 0 {
		state.Metrics.FlowID = f.ID
		state.Metrics.StartedAt = time.Now().UnixMilli()
		state.Metrics.TotalSteps = len(f.Steps)
	}

	visited := make(map[string]bool)

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			state.LastError = flow.NewExecutionError(flow.ErrSystem, "engine.manager", "execution cancelled", ctx.Err())
			_ = state.Transition(flow.StatusCancelled)
			state.Metrics.EndedAt = time.Now().UnixMilli()
			m.publish(ctx, event.DomainSystem, event.TypeCancel, f.ID, &event.SystemPayload{Message: "flow cancelled"})
			return state, state.LastError
		}
		if check := pauseCheckFrom(ctx); check != nil && check() {
			_ = state.Transition(flow.StatusPaused)
			state.Pending = pendingFromFrontier(frontier, leafFor)
			m.publish(ctx, event.DomainSystem, event.TypeSuspend, f.ID, &event.SystemPayload{Message: "flow paused"})
			return state, nil
		}

		batch := make([]string, 0, len(frontier))
		for _, id := range frontier {
			if !visited[id] {
				visited[id] = true
				batch = append(batch, id)
			}
		}
		frontier = nil
		if len(batch) == 0 {
			continue
		}

		steps := make([]*flow.FlowStep, 0, len(batch))
		inputs := make([]flow.Value, 0, len(batch))
		allParallel := true
		for _, id := range batch {
			step := f.Steps[id]
			steps = append(steps, step)
			inputs = append(inputs, state.Variables[id+".input"])
			if !step.Parallel {
				allParallel = false
			}
		}

		for _, step := range steps {
			m.publishToolEvent(ctx, f.ID, event.TypeToolStart, step.ID, flow.Value{}, nil)
		}

		batchCtx := ctx
		var batchSpan ports.Span
		if m.tracer != nil {
			batchCtx, batchSpan = m.tracer.StartSpan(ctx, "step.run", "flow_id", f.ID, "batch_size", len(steps))
		}

		var results []flow.StepResult
		var err error
		if allParallel && len(steps) > 1 {
			results, err = m.parallel.ExecuteAll(batchCtx, steps, inputs, f.Configuration.FailFast)
		} else {
			results = make([]flow.StepResult, len(steps))
			for i, step := range steps {
				results[i] = m.executor.Execute(batchCtx, step, inputs[i])
				if results[i].Status == flow.StepFailed && f.Configuration.FailFast {
					err = flow.NewExecutionError(flow.ErrExecution, "engine.manager", "step failed: "+step.ID, results[i].Error)
					break
				}
			}
		}
		if batchSpan != nil {
			batchSpan.End()
		}

		var nextFrontier []string
		for i, result := range results {
			if result.StepID == "" {
				continue
			}
			state.Completed[result.StepID] = result.Status
			state.CurrentStep = result.StepID
			state.Metrics.Append(flow.StepMetrics{
				StepID:     result.StepID,
				Attempt:    result.Attempt,
				DurationMS: result.DurationMS,
				Status:     result.Status,
			})
			if result.Status == flow.StepCompleted {
				state.Metrics.CompletedSteps++
				state.Variables[result.StepID+".output"] = result.Output
				m.publishToolEvent(ctx, f.ID, event.TypeResult, result.StepID, result.Output, nil)
			}
			if result.Attempt > 1 {
				state.Metrics.RetryCount += result.Attempt - 1
			}
			if result.Error != nil {
				state.LastError = result.Error
				m.publishToolEvent(ctx, f.ID, event.TypeToolError, result.StepID, flow.Value{}, result.Error)
				if m.logger != nil {
					m.logger.Error(ctx, "step failed", "flow_id", f.ID, "step_id", result.StepID, "error", result.Error)
				}
			}
			if pid, ok := leafFor[result.StepID]; ok {
				pathStatus := flow.PathCompleted
				if result.Status != flow.StepCompleted {
					pathStatus = flow.PathFailed
				}
				state.Path.Resolve(pid, pathStatus)
			}

			resolveErr := m.resolveConnections(f, joins, state, leafFor, steps[i], result, &nextFrontier)
			if resolveErr != nil && err == nil {
				err = resolveErr
			}
		}

		if err != nil && f.Configuration.FailFast {
			state.LastError = flow.AsExecutionError("engine.manager", err)
			_ = state.Transition(flow.StatusFailed)
			state.Metrics.EndedAt = time.Now().UnixMilli()
			m.publish(ctx, event.DomainSystem, event.TypeError, f.ID, &event.SystemPayload{Message: state.LastError.Error()})
			return state, err
		}

		frontier = nextFrontier
	}

	state.Metrics.EndedAt = time.Now().UnixMilli()
	if state.LastError != nil {
		_ = state.Transition(flow.StatusFailed)
		m.publish(ctx, event.DomainSystem, event.TypeError, f.ID, &event.SystemPayload{Message: state.LastError.Error()})
		return state, state.LastError
	}
	_ = state.Transition(flow.StatusCompleted)
	m.publish(ctx, event.DomainSystem, event.TypeEnd, f.ID, &event.SystemPayload{Message: "flow completed"})
	return state, nil
}

// pendingFromFrontier captures the ready-but-undispatched steps (and the
// path node each descends from) at the moment a run pauses.
func pendingFromFrontier(frontier []string, leafFor map[string]flow.PathID) []flow.PendingStep {
	pending := make([]flow.PendingStep, 0, len(frontier))
	for _, id := range frontier {
		pending = append(pending, flow.PendingStep{StepID: id, PathID: leafFor[id]})
	}
	return pending
}

// publish emits evt through the configured publisher, a no-op when none
// was wired (e.g. in tests exercising Run in isolation).
func (m *Manager) publish(ctx context.Context, domain event.Domain, typ event.Type, executionID string, payload *event.SystemPayload) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(ctx, event.ArchflowEvent{
		Envelope: event.Envelope{Domain: domain, Type: typ, ExecutionID: executionID},
		System:   payload,
	})
}

// publishToolEvent emits a TOOL-domain lifecycle event for a single step.
func (m *Manager) publishToolEvent(ctx context.Context, executionID string, typ event.Type, stepID string, output flow.Value, stepErr *flow.ExecutionError) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(ctx, event.ArchflowEvent{
		Envelope: event.Envelope{Domain: event.DomainTool, Type: typ, ExecutionID: executionID},
		Tool: &event.ToolPayload{
			ToolName: stepID,
			Output:   output,
			Error:    stepErr,
		},
	})
}

// resolveConnections evaluates every outgoing connection of a completed
// step, appending newly-ready (non-join, or fully-resolved join) targets
// to frontier and forking a path node for each one in leafFor.
func (m *Manager) resolveConnections(f *flow.Flow, joins map[string]*joinState, state *flow.FlowState, leafFor map[string]flow.PathID, step *flow.FlowStep, result flow.StepResult, frontier *[]string) error {
	failed := result.Status != flow.StepCompleted
	parentID := leafFor[step.ID]

	for _, conn := range step.Connections {
		if conn.OnError != failed {
			// Error-path edges only fire when the step failed; success
			// edges only fire when it completed.
			continue
		}

		fired := true
		if !failed && !conn.Guard.IsUnconditional() {
			ok, err := m.guards.Evaluate(context.Background(), conn.Guard, state.Variables, result.Output)
			if err != nil {
				return err
			}
			fired = ok
		}

		target := conn.TargetStepID
		forkParent := parentID
		if join, isJoin := joins[target]; isJoin {
			join.resolved++
			join.lastParent = parentID
			if fired {
				join.fired++
			}
			if join.resolved < join.incoming {
				continue
			}
			if join.fired == 0 {
				state.Completed[target] = flow.StepSkipped
				state.Metrics.GuardSkipped++
				continue
			}
			forkParent = join.lastParent
		} else if !fired {
			state.Completed[target] = flow.StepSkipped
			state.Metrics.GuardSkipped++
			continue
		}

		state.Variables[target+".input"] = result.Output
		leafFor[target] = state.Path.Fork(forkParent, target)
		*frontier = append(*frontier, target)
	}
	return nil
}

var _ ports.ExecutionManager = (*Manager)(nil)
