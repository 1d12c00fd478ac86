package config

// flowDSL mirrors the on-disk YAML shape of a Flow definition. It is kept
// deliberately separate from the domain Flow type so the wire format can
// evolve independently of the execution model.
type flowDSL struct {
	Version       string              `yaml:"version"`
	ID            string              `yaml:"id"`
	Name          string              `yaml:"name"`
	EntryStep     string              `yaml:"entry_step"`
	Configuration flowConfigurationDSL `yaml:"configuration"`
	Steps         []flowStepDSL       `yaml:"steps"`
}

type flowConfigurationDSL struct {
	MaxConcurrentSteps int     `yaml:"max_concurrent_steps"`
	FailFast           bool    `yaml:"fail_fast"`
	DefaultTimeout     float64 `yaml:"default_timeout_seconds"`
	DefaultRetry       retryDSL `yaml:"default_retry"`
}

type retryDSL struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	BackoffSeconds    float64 `yaml:"backoff_seconds"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

type flowStepDSL struct {
	ID             string                 `yaml:"id"`
	Name           string                 `yaml:"name"`
	Kind           string                 `yaml:"kind"`
	Config         map[string]interface{} `yaml:"config"`
	InputSchema    map[string]interface{} `yaml:"input_schema"`
	OutputSchema   map[string]interface{} `yaml:"output_schema"`
	OutputFormat   string                 `yaml:"output_format"`
	TimeoutSeconds float64                `yaml:"timeout_seconds"`
	Retry          *retryDSL              `yaml:"retry"`
	Parallel       bool                   `yaml:"parallel"`
	Connections    []connectionDSL        `yaml:"connections"`
}

type connectionDSL struct {
	Target  string `yaml:"target"`
	Guard   string `yaml:"guard"`
	OnError bool   `yaml:"on_error"`
}
