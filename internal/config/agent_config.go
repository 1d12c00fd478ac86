package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// ResourceConfig bounds the compute the engine is allowed to consume.
type ResourceConfig struct {
	MaxThreads int `toml:"max_threads" validate:"required,gt=0"`
	MaxMemoryMB int `toml:"max_memory_mb" validate:"required,gt=0"`
}

// MonitoringConfig controls the ambient observability stack.
type MonitoringConfig struct {
	MetricsEnabled  bool   `toml:"metrics_enabled"`
	LogLevel        string `toml:"log_level" validate:"required,oneof=debug info warn error"`
	MetricsInterval int    `toml:"metrics_interval_seconds" validate:"required,gt=0"`
}

// AgentConfig is the engine's top-level operator-supplied configuration,
// loaded from a TOML file at startup.
type AgentConfig struct {
	MaxConcurrentFlows int               `toml:"max_concurrent_flows" validate:"required,gt=0"`
	DefaultTimeout     float64           `toml:"default_timeout_seconds" validate:"gt=0"`
	Resources          ResourceConfig    `toml:"resources" validate:"required"`
	Monitoring         MonitoringConfig  `toml:"monitoring" validate:"required"`
	Labels             map[string]string `toml:"labels"`
}

// Default returns an AgentConfig with conservative defaults applied.
func Default() AgentConfig {
	return AgentConfig{
		MaxConcurrentFlows: 10,
		DefaultTimeout:     30,
		Resources: ResourceConfig{
			MaxThreads:  8,
			MaxMemoryMB: 1024,
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled:  true,
			LogLevel:        "info",
			MetricsInterval: 15,
		},
		Labels: map[string]string{},
	}
}

// Load reads an AgentConfig from path, layering it over Default(), then
// fails closed: any validation error aborts construction rather than
// returning a partially-usable config.
func Load(path string) (AgentConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("read agent config %q: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("parse agent config %q: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("validate agent config %q: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()
