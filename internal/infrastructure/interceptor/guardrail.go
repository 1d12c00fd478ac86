package interceptor

import (
	"context"

	"github.com/archflow/archengine/internal/ports"
)

// GuardrailViolation is returned from Before when a tool invocation fails a
// policy check, short-circuiting the chain before the tool is ever called.
type GuardrailViolation struct {
	Rule   string
	Detail string
}

func (v *GuardrailViolation) Error() string {
	return "guardrail violation [" + v.Rule + "]: " + v.Detail
}

// GuardrailRule inspects a proposed tool input and either allows it or
// returns a GuardrailViolation.
type GuardrailRule func(ic *ports.InterceptorContext) *GuardrailViolation

// GuardrailInterceptor enforces a list of policy rules before a tool is
// invoked, e.g. denying tool names against an allowlist or rejecting
// inputs that carry disallowed fields.
type GuardrailInterceptor struct {
	rules []GuardrailRule
}

// NewGuardrailInterceptor constructs a GuardrailInterceptor from rules
// evaluated in order; the first violation found halts the chain.
func NewGuardrailInterceptor(rules ...GuardrailRule) *GuardrailInterceptor {
	return &GuardrailInterceptor{rules: rules}
}

func (g *GuardrailInterceptor) Name() string { return "guardrail" }

func (g *GuardrailInterceptor) Before(ctx context.Context, ic *ports.InterceptorContext) error {
	for _, rule := range g.rules {
		if violation := rule(ic); violation != nil {
			return violation
		}
	}
	return nil
}

func (g *GuardrailInterceptor) After(ctx context.Context, ic *ports.InterceptorContext) error {
	return nil
}

func (g *GuardrailInterceptor) OnError(ctx context.Context, ic *ports.InterceptorContext) error {
	return nil
}

// AllowlistRule rejects any tool name not present in allowed.
func AllowlistRule(allowed map[string]bool) GuardrailRule {
	return func(ic *ports.InterceptorContext) *GuardrailViolation {
		if !allowed[ic.ToolName] {
			return &GuardrailViolation{Rule: "allowlist", Detail: "tool not permitted: " + ic.ToolName}
		}
		return nil
	}
}

var _ ports.Interceptor = (*GuardrailInterceptor)(nil)
var _ error = (*GuardrailViolation)(nil)
