package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
	apperrors "github.com/archflow/archengine/pkg/errors"
)

// FlowLoader implements ports.ConfigLoader by reading a Flow's YAML
// definition from disk.
type FlowLoader struct {
	logger ports.Logger
}

// NewFlowLoader constructs a FlowLoader. logger may be nil.
func NewFlowLoader(logger ports.Logger) *FlowLoader {
	return &FlowLoader{logger: logger}
}

// LoadFlow parses and validates a Flow definition. A YAML syntax error is
// returned as a flow.ExecutionError wrapping an apperrors.ParseError;
// mapping and Flow.Validate errors are returned as they come.
func (l *FlowLoader) LoadFlow(ctx context.Context, path string) (*flow.Flow, error) {
	if err := ctx.Err(); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "config", "load cancelled", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, flow.NewExecutionError(flow.ErrNotFound, "config", fmt.Sprintf("flow file %q not found", path), err)
		}
		return nil, flow.NewExecutionError(flow.ErrSystem, "config", fmt.Sprintf("read flow file %q", path), err)
	}

	var dsl flowDSL
	if err := yaml.Unmarshal(data, &dsl); err != nil {
		parseErr := apperrors.NewParseError(path, 0, err)
		return nil, flow.NewExecutionError(flow.ErrValidation, "config", "invalid flow YAML syntax", parseErr)
	}

	f, err := mapFlowDSL(&dsl)
	if err != nil {
		return nil, err
	}

	if err := f.Validate(); err != nil {
		l.logError(ctx, "flow failed validation", err, path)
		return nil, err
	}

	l.logInfo(ctx, "flow loaded", path, len(f.Steps))
	return f, nil
}

func mapFlowDSL(dsl *flowDSL) (*flow.Flow, error) {
	steps := make(map[string]*flow.FlowStep, len(dsl.Steps))
	for _, s := range dsl.Steps {
		retry := flow.DefaultRetryPolicy()
		if s.Retry != nil {
			retry = flow.RetryPolicy{
				MaxAttempts:       s.Retry.MaxAttempts,
				BackoffSeconds:    s.Retry.BackoffSeconds,
				BackoffMultiplier: s.Retry.BackoffMultiplier,
			}
		}

		conns := make([]flow.StepConnection, len(s.Connections))
		for i, c := range s.Connections {
			conns[i] = flow.StepConnection{
				TargetStepID: c.Target,
				Guard:        flow.Guard(c.Guard),
				OnError:      c.OnError,
			}
		}

		steps[s.ID] = &flow.FlowStep{
			ID:             s.ID,
			Name:           s.Name,
			Kind:           flow.StepKind(s.Kind),
			Connections:    conns,
			Config:         toValueMap(s.Config),
			InputSchema:    toValueMap(s.InputSchema),
			OutputSchema:   toValueMap(s.OutputSchema),
			OutputFormat:   s.OutputFormat,
			TimeoutSeconds: s.TimeoutSeconds,
			Retry:          retry,
			Parallel:       s.Parallel,
		}
	}

	return &flow.Flow{
		ID:          dsl.ID,
		Name:        dsl.Name,
		Version:     dsl.Version,
		EntryStepID: dsl.EntryStep,
		Steps:       steps,
		Configuration: flow.FlowConfiguration{
			MaxConcurrentSteps: dsl.Configuration.MaxConcurrentSteps,
			FailFast:           dsl.Configuration.FailFast,
			DefaultTimeout:     dsl.Configuration.DefaultTimeout,
			DefaultRetry: flow.RetryPolicy{
				MaxAttempts:       dsl.Configuration.DefaultRetry.MaxAttempts,
				BackoffSeconds:    dsl.Configuration.DefaultRetry.BackoffSeconds,
				BackoffMultiplier: dsl.Configuration.DefaultRetry.BackoffMultiplier,
			},
		},
	}, nil
}

func toValueMap(in map[string]interface{}) map[string]flow.Value {
	if in == nil {
		return nil
	}
	out := make(map[string]flow.Value, len(in))
	for k, v := range in {
		out[k] = flow.FromNative(v)
	}
	return out
}

func (l *FlowLoader) logInfo(ctx context.Context, msg, path string, steps int) {
	if l.logger == nil {
		return
	}
	l.logger.Info(ctx, msg, "path", path, "steps", steps)
}

func (l *FlowLoader) logError(ctx context.Context, msg string, err error, path string) {
	if l.logger == nil {
		return
	}
	l.logger.Error(ctx, msg, "path", path, "error", err)
}

var _ ports.ConfigLoader = (*FlowLoader)(nil)
