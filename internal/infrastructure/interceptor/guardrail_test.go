package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

func TestGuardrailInterceptorAllowsPermittedTool(t *testing.T) {
	g := NewGuardrailInterceptor(AllowlistRule(map[string]bool{"search": true}))
	ic := &ports.InterceptorContext{ToolName: "search"}

	err := g.Before(context.Background(), ic)
	assert.NoError(t, err)
}

func TestGuardrailInterceptorBlocksDisallowedTool(t *testing.T) {
	g := NewGuardrailInterceptor(AllowlistRule(map[string]bool{"search": true}))
	ic := &ports.InterceptorContext{ToolName: "delete_everything"}

	err := g.Before(context.Background(), ic)
	require.Error(t, err)
	violation, ok := err.(*GuardrailViolation)
	require.True(t, ok)
	assert.Equal(t, "allowlist", violation.Rule)
	assert.Contains(t, violation.Error(), "delete_everything")
}

func TestGuardrailInterceptorStopsAtFirstViolation(t *testing.T) {
	calledSecond := false
	first := func(ic *ports.InterceptorContext) *GuardrailViolation {
		return &GuardrailViolation{Rule: "first", Detail: "always blocks"}
	}
	second := func(ic *ports.InterceptorContext) *GuardrailViolation {
		calledSecond = true
		return nil
	}
	g := NewGuardrailInterceptor(first, second)

	err := g.Before(context.Background(), &ports.InterceptorContext{ToolName: "anything"})
	require.Error(t, err)
	violation := err.(*GuardrailViolation)
	assert.Equal(t, "first", violation.Rule)
	assert.False(t, calledSecond, "rule evaluation must halt after the first violation")
}

func TestGuardrailInterceptorChainedThroughChainBlocksToolInvocation(t *testing.T) {
	g := NewGuardrailInterceptor(AllowlistRule(map[string]bool{"search": true}))
	chain := NewChain(g)
	tool := &stubTool{name: "delete_everything"}

	_, err := chain.Invoke(context.Background(), tool, "step1", flow.Null())
	require.Error(t, err)
	assert.False(t, tool.invoked)
	_, ok := err.(*GuardrailViolation)
	assert.True(t, ok)
}

func TestGuardrailInterceptorAfterAndOnErrorAreNoops(t *testing.T) {
	g := NewGuardrailInterceptor()
	ic := &ports.InterceptorContext{}
	assert.NoError(t, g.After(context.Background(), ic))
	assert.NoError(t, g.OnError(context.Background(), ic))
}
