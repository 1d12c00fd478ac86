package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/archengine/internal/domain/flow"
)

// recordingExecutor implements ports.DeterministicExecutor, tracking peak
// concurrency and letting each step's outcome be scripted by ID.
type recordingExecutor struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	outcome map[string]flow.StepResult
	delay   time.Duration
}

func (r *recordingExecutor) Execute(ctx context.Context, step *flow.FlowStep, input flow.Value) flow.StepResult {
	cur := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		peak := atomic.LoadInt32(&r.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&r.peak, peak, cur) {
			break
		}
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return flow.StepResult{StepID: step.ID, Status: flow.StepCancelled}
		}
	}
	r.mu.Lock()
	result, ok := r.outcome[step.ID]
	r.mu.Unlock()
	if !ok {
		return flow.StepResult{StepID: step.ID, Status: flow.StepCompleted}
	}
	return result
}

func stepsByIDs(ids ...string) []*flow.FlowStep {
	steps := make([]*flow.FlowStep, len(ids))
	for i, id := range ids {
		steps[i] = &flow.FlowStep{ID: id}
	}
	return steps
}

func TestParallelExecutorPreservesOrderRegardlessOfCompletionOrder(t *testing.T) {
	inner := &recordingExecutor{delay: 2 * time.Millisecond}
	p := NewParallelExecutor(inner, 4)

	steps := stepsByIDs("a", "b", "c", "d")
	inputs := make([]flow.Value, len(steps))

	results, err := p.ExecuteAll(context.Background(), steps, inputs, false)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, id, results[i].StepID)
	}
}

func TestParallelExecutorBoundsConcurrency(t *testing.T) {
	inner := &recordingExecutor{delay: 5 * time.Millisecond}
	p := NewParallelExecutor(inner, 2)

	steps := stepsByIDs("a", "b", "c", "d", "e", "f")
	inputs := make([]flow.Value, len(steps))

	_, err := p.ExecuteAll(context.Background(), steps, inputs, false)
	require.NoError(t, err)
	assert.LessOrEqual(t, inner.peak, int32(2))
}

func TestParallelExecutorAggregatesFailuresWhenNotFailFast(t *testing.T) {
	inner := &recordingExecutor{
		outcome: map[string]flow.StepResult{
			"b": {StepID: "b", Status: flow.StepFailed, Error: flow.NewExecutionError(flow.ErrExecution, "test", "boom", nil)},
		},
	}
	p := NewParallelExecutor(inner, 4)
	steps := stepsByIDs("a", "b", "c")
	inputs := make([]flow.Value, len(steps))

	results, err := p.ExecuteAll(context.Background(), steps, inputs, false)
	require.Error(t, err)
	// every sibling still ran to completion
	assert.Equal(t, flow.StepCompleted, results[0].Status)
	assert.Equal(t, flow.StepFailed, results[1].Status)
	assert.Equal(t, flow.StepCompleted, results[2].Status)
}

func TestParallelExecutorFailFastCancelsSiblings(t *testing.T) {
	inner := &recordingExecutor{
		outcome: map[string]flow.StepResult{
			"a": {StepID: "a", Status: flow.StepFailed, Error: flow.NewExecutionError(flow.ErrExecution, "test", "boom", nil)},
		},
	}
	slowInner := &recordingExecutor{delay: 200 * time.Millisecond}

	combined := &dispatchingExecutor{fast: inner, slow: slowInner}
	p := NewParallelExecutor(combined, 4)

	steps := stepsByIDs("a", "b", "c")
	inputs := make([]flow.Value, len(steps))

	start := time.Now()
	results, err := p.ExecuteAll(context.Background(), steps, inputs, true)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, flow.StepFailed, results[0].Status)
	assert.Less(t, elapsed, 150*time.Millisecond, "failFast must cancel slow siblings instead of waiting out their full delay")
}

// dispatchingExecutor routes step "a" through fast (which fails without
// delay) and every other step through slow (which waits 200ms unless
// cancelled first),
// letting the failFast test assert siblings actually observe ctx.Done().
type dispatchingExecutor struct {
	fast *recordingExecutor
	slow *recordingExecutor
}

func (d *dispatchingExecutor) Execute(ctx context.Context, step *flow.FlowStep, input flow.Value) flow.StepResult {
	if step.ID == "a" {
		return d.fast.Execute(ctx, step, input)
	}
	return d.slow.Execute(ctx, step, input)
}
