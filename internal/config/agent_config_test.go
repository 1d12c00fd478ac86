package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesValidConfigOverDefaults(t *testing.T) {
	path := writeTempConfig(t, `
max_concurrent_flows = 5

[resources]
max_threads = 16
max_memory_mb = 2048

[monitoring]
log_level = "warn"
metrics_interval_seconds = 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxConcurrentFlows)
	assert.Equal(t, 16, cfg.Resources.MaxThreads)
	assert.Equal(t, "warn", cfg.Monitoring.LogLevel)
	// default_timeout_seconds was left unset by the file and keeps Default()'s value.
	assert.Equal(t, float64(30), cfg.DefaultTimeout)
}

func TestLoadFailsClosedOnInvalidLogLevel(t *testing.T) {
	path := writeTempConfig(t, `
[resources]
max_threads = 4
max_memory_mb = 512

[monitoring]
log_level = "verbose"
metrics_interval_seconds = 10
`)

	_, err := Load(path)
	require.Error(t, err, "an unrecognized log level must fail validation rather than silently degrade")
}

func TestLoadFailsClosedOnZeroMaxThreads(t *testing.T) {
	path := writeTempConfig(t, `
[resources]
max_threads = 0
max_memory_mb = 512

[monitoring]
log_level = "info"
metrics_interval_seconds = 10
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadReturnsErrorForMalformedTOML(t *testing.T) {
	path := writeTempConfig(t, "this is not [ valid toml")
	_, err := Load(path)
	require.Error(t, err)
}

func TestDefaultProducesAlreadyValidConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, validate.Struct(cfg))
}
