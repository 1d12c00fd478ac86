package interceptor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/archflow/archengine/internal/ports"
)

type recordingCollector struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCollector) IncCounter(ctx context.Context, name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name+":"+labels["tool_name"])
}

func (c *recordingCollector) SetGauge(ctx context.Context, name string, value float64, labels map[string]string) {
}

func (c *recordingCollector) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
}

func TestMetricsInterceptorRecordsLifecycleCounters(t *testing.T) {
	collector := &recordingCollector{}
	m := NewMetricsInterceptor(collector)
	ic := &ports.InterceptorContext{ToolName: "search"}
	ctx := context.Background()

	require := assert.New(t)
	require.NoError(m.Before(ctx, ic))
	require.NoError(m.After(ctx, ic))
	require.NoError(m.OnError(ctx, ic))

	require.Equal([]string{
		"archengine_tool_invocations_total:search",
		"archengine_tool_invocations_succeeded_total:search",
		"archengine_tool_invocations_failed_total:search",
	}, collector.calls)
}

func TestMetricsInterceptorWithNilCollectorIsNoop(t *testing.T) {
	m := NewMetricsInterceptor(nil)
	ic := &ports.InterceptorContext{ToolName: "search"}
	ctx := context.Background()

	assert.NoError(t, m.Before(ctx, ic))
	assert.NoError(t, m.After(ctx, ic))
	assert.NoError(t, m.OnError(ctx, ic))
}
