package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// DeterministicExecutor wraps a StepExecutor with retry, input/output
// schema validation, output formatting, and a timeout race per attempt,
// per the engine's C5 component. Retry backoff follows
// backoffSeconds * backoffMultiplier^(attempt-1), mirroring a standard
// exponential-backoff retry policy.
type DeterministicExecutor struct {
	step   ports.StepExecutor
	logger ports.Logger
	sleep  func(d time.Duration)
}

// NewDeterministicExecutor constructs a DeterministicExecutor delegating
// single-attempt work to step.
func NewDeterministicExecutor(step ports.StepExecutor, logger ports.Logger) *DeterministicExecutor {
	return &DeterministicExecutor{step: step, logger: logger, sleep: time.Sleep}
}

// Execute runs step to completion, retrying per its RetryPolicy and
// enforcing step.TimeoutSeconds on each individual attempt (Open Question
// 4: the outer step timeout always wins over any timeout internal to the
// step's own implementation).
func (d *DeterministicExecutor) Execute(ctx context.Context, step *flow.FlowStep, input flow.Value) flow.StepResult {
	if err := validateAgainstSchema(step.InputSchema, input); err != nil {
		return flow.StepResult{
			StepID: step.ID,
			Status: flow.StepFailed,
			Error:  flow.NewExecutionError(flow.ErrValidation, "engine.deterministic", "input schema validation failed", err),
		}
	}

	policy := step.Retry
	if policy.MaxAttempts <= 0 {
		policy = flow.DefaultRetryPolicy()
	}

	var lastResult flow.StepResult
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return flow.StepResult{
				StepID:  step.ID,
				Status:  flow.StepCancelled,
				Attempt: attempt,
				Error:   flow.NewExecutionError(flow.ErrSystem, "engine.deterministic", "cancelled before attempt", ctx.Err()),
			}
		}

		executionID := uuid.NewString()
		startedAt := time.Now()
		result := d.executeWithTimeout(ctx, step, input, executionID, attempt)
		result.DurationMS = time.Since(startedAt).Milliseconds()
		lastResult = result

		if result.Status == flow.StepCompleted {
			if err := validateAgainstSchema(step.OutputSchema, result.Output); err != nil {
				result.Status = flow.StepFailed
				result.Error = flow.NewExecutionError(flow.ErrValidation, "engine.deterministic", "output schema validation failed", err)
				return result
			}
			result.Output = formatOutput(step.OutputFormat, result.Output)
			return result
		}

		retryable := result.Error == nil || result.Error.Type.Retryable()
		if !retryable || attempt == policy.MaxAttempts {
			break
		}

		d.logRetry(ctx, step.ID, attempt, result.Error)
		backoff := policy.BackoffSeconds * math.Pow(policy.BackoffMultiplier, float64(attempt-1))
		if backoff > 0 {
			d.sleep(time.Duration(backoff * float64(time.Second)))
		}
	}

	if lastResult.Status != flow.StepCompleted {
		lastResult.Error = flow.NewExecutionError(flow.ErrExecution, "engine.deterministic",
			"retry exhausted for step "+step.ID, lastResult.Error).WithDetail("attempts", policy.MaxAttempts)
	}
	return lastResult
}

// executeWithTimeout races the underlying StepExecutor against
// step.TimeoutSeconds, returning a StepTimeout result if the deadline
// fires first.
func (d *DeterministicExecutor) executeWithTimeout(ctx context.Context, step *flow.FlowStep, input flow.Value, executionID string, attempt int) flow.StepResult {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if step.TimeoutSeconds > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(step.TimeoutSeconds*float64(time.Second)))
		defer cancel()
	}

	resultCh := make(chan flow.StepResult, 1)
	go func() {
		resultCh <- d.step.ExecuteStep(attemptCtx, step, input)
	}()

	select {
	case result := <-resultCh:
		result.ExecutionID = executionID
		result.Attempt = attempt
		return result
	case <-attemptCtx.Done():
		return flow.StepResult{
			StepID:      step.ID,
			ExecutionID: executionID,
			Attempt:     attempt,
			Status:      flow.StepTimeout,
			Error:       flow.NewExecutionError(flow.ErrTimeout, "engine.deterministic", "step exceeded timeout", attemptCtx.Err()),
		}
	}
}

func (d *DeterministicExecutor) logRetry(ctx context.Context, stepID string, attempt int, err *flow.ExecutionError) {
	if d.logger == nil {
		return
	}
	d.logger.Warn(ctx, "retrying step", "step_id", stepID, "attempt", attempt, "error", err)
}

// validateAgainstSchema performs a shallow required-field presence check:
// every key present in schema must be present (non-null) in value when
// value is a KindMap. Schemas are themselves Value maps built from the
// flow YAML's input_schema/output_schema blocks.
func validateAgainstSchema(schema map[string]flow.Value, value flow.Value) error {
	if len(schema) == 0 {
		return nil
	}
	fields, ok := value.Map()
	if !ok {
		return flow.NewExecutionError(flow.ErrValidation, "engine.deterministic", "expected object value for schema validation", nil)
	}
	for key := range schema {
		if v, present := fields[key]; !present || v.IsNull() {
			return flow.NewExecutionError(flow.ErrValidation, "engine.deterministic", "missing required field: "+key, nil)
		}
	}
	return nil
}

// formatOutput applies a declared OutputFormat to a step's raw output. The
// only currently supported format beyond the identity transform is
// "string", which coerces the native value to its string representation.
func formatOutput(format string, output flow.Value) flow.Value {
	switch format {
	case "string":
		if s, ok := output.String(); ok {
			return flow.String(s)
		}
		return flow.String(stringifyNative(output.Native()))
	default:
		return output
	}
}

func stringifyNative(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return jsonStringify(v)
}

var _ ports.DeterministicExecutor = (*DeterministicExecutor)(nil)
