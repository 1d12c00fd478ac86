package interceptor

import (
	"context"

	"github.com/archflow/archengine/internal/ports"
)

// LoggingInterceptor records tool invocation lifecycle events through the
// operational logger.
type LoggingInterceptor struct {
	logger ports.Logger
}

// NewLoggingInterceptor constructs a LoggingInterceptor.
func NewLoggingInterceptor(logger ports.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logger}
}

func (l *LoggingInterceptor) Name() string { return "logging" }

func (l *LoggingInterceptor) Before(ctx context.Context, ic *ports.InterceptorContext) error {
	if l.logger == nil {
		return nil
	}
	l.logger.Debug(ctx, "tool invocation starting", "tool", ic.ToolName, "step_id", ic.StepID)
	return nil
}

func (l *LoggingInterceptor) After(ctx context.Context, ic *ports.InterceptorContext) error {
	if l.logger == nil {
		return nil
	}
	l.logger.Debug(ctx, "tool invocation completed", "tool", ic.ToolName, "step_id", ic.StepID)
	return nil
}

func (l *LoggingInterceptor) OnError(ctx context.Context, ic *ports.InterceptorContext) error {
	if l.logger == nil {
		return nil
	}
	l.logger.Error(ctx, "tool invocation failed", "tool", ic.ToolName, "step_id", ic.StepID, "error", ic.Err)
	return nil
}

var _ ports.Interceptor = (*LoggingInterceptor)(nil)
