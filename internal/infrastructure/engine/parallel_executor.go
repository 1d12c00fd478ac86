package engine

import (
	"context"
	"sync"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// ParallelExecutor runs a batch of independent steps bounded by a
// semaphore channel, index-preserving results regardless of completion
// order, in the same goroutine+sync.Once-first-error shape as the
// teacher's level-based executor, generalized to an explicit concurrency
// cap instead of one goroutine per level member.
type ParallelExecutor struct {
	inner       ports.DeterministicExecutor
	maxParallel int
}

// NewParallelExecutor constructs a ParallelExecutor delegating single-step
// work to inner, allowing at most maxParallel concurrent steps.
func NewParallelExecutor(inner ports.DeterministicExecutor, maxParallel int) *ParallelExecutor {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &ParallelExecutor{inner: inner, maxParallel: maxParallel}
}

// ExecuteAll runs steps[i] with inputs[i], returning results in the same
// order. When failFast is true, the first fatal step error cancels the
// remaining in-flight and not-yet-started steps; when false, every step
// runs to completion and the first error encountered is still returned
// alongside the full result set.
func (p *ParallelExecutor) ExecuteAll(ctx context.Context, steps []*flow.FlowStep, inputs []flow.Value, failFast bool) ([]flow.StepResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]flow.StepResult, len(steps))
	sem := make(chan struct{}, p.maxParallel)

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for i, step := range steps {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, step *flow.FlowStep, input flow.Value) {
			defer wg.Done()
			defer func() { <-sem }()

			result := p.inner.Execute(ctx, step, input)
			results[idx] = result

			if result.Status == flow.StepFailed {
				once.Do(func() {
					firstErr = flow.NewExecutionError(flow.ErrExecution, "engine.parallel",
						"step failed: "+step.ID, result.Error)
					if failFast {
						cancel()
					}
				})
			}
		}(i, step, inputs[i])
	}

	wg.Wait()
	return results, firstErr
}

var _ ports.ParallelExecutor = (*ParallelExecutor)(nil)
