package flow

// StepKind identifies the category of work a FlowStep performs.
type StepKind string

const (
	StepAssistant StepKind = "ASSISTANT"
	StepAgent     StepKind = "AGENT"
	StepTool      StepKind = "TOOL"
	StepChain     StepKind = "CHAIN"
	StepCustom    StepKind = "CUSTOM"
)

// Guard is a boolean expression, evaluated against the flow's current
// variables and the upstream step's output, that decides whether a
// StepConnection fires. An empty Guard always fires.
type Guard string

func (g Guard) IsUnconditional() bool { return g == "" }

// StepConnection is a directed edge in the flow graph: when present, the
// target step only becomes a join candidate once every incoming connection
// into it has either fired or been definitively skipped.
type StepConnection struct {
	TargetStepID string
	Guard        Guard
	// OnError marks this connection as an error-path edge: it fires only
	// when the source step's result is Failed, instead of the normal
	// success path.
	OnError bool
}

// RetryPolicy configures how many times and with what backoff a step is
// retried by the Deterministic Executor before it is considered failed.
type RetryPolicy struct {
	MaxAttempts       int
	BackoffSeconds    float64
	BackoffMultiplier float64
}

// DefaultRetryPolicy mirrors a single-attempt, no-retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, BackoffSeconds: 0, BackoffMultiplier: 1}
}

// FlowStep is a single node in a Flow's execution graph.
type FlowStep struct {
	ID              string
	Name            string
	Kind            StepKind
	Connections     []StepConnection
	Config          map[string]Value
	InputSchema     map[string]Value
	OutputSchema    map[string]Value
	OutputFormat    string
	TimeoutSeconds  float64
	Retry           RetryPolicy
	// Parallel marks a step as eligible to run concurrently with its
	// siblings at the same execution level.
	Parallel bool
}

// IsJoin reports whether a step with the given number of incoming
// connections (see Flow.IncomingCounts) is a join: a step with more than
// one incoming connection only becomes ready once every incoming
// connection has fired or been skipped.
func (s *FlowStep) IsJoin(incoming int) bool {
	return incoming > 1
}
