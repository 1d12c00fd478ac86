package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archflow/archengine/internal/domain/flow"
)

const validFlowYAML = `
id: demo
name: Demo Flow
version: "1"
entry_step: fetch
configuration:
  fail_fast: true
  max_concurrent_steps: 4
steps:
  - id: fetch
    kind: TOOL
    connections:
      - target: classify
  - id: classify
    kind: TOOL
    retry:
      max_attempts: 3
      backoff_seconds: 1
      backoff_multiplier: 2
    connections:
      - target: notify
        guard: ".output.score > 0"
`

func writeTempFlow(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFlowLoaderLoadsValidFlow(t *testing.T) {
	path := writeTempFlow(t, validFlowYAML+"\n  - id: notify\n    kind: TOOL\n")
	l := NewFlowLoader(nil)

	f, err := l.LoadFlow(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "demo", f.ID)
	assert.Equal(t, "fetch", f.EntryStepID)
	assert.True(t, f.Configuration.FailFast)
	require.Contains(t, f.Steps, "classify")
	assert.Equal(t, 3, f.Steps["classify"].Retry.MaxAttempts)
	require.Len(t, f.Steps["classify"].Connections, 1)
	assert.Equal(t, flow.Guard(".output.score > 0"), f.Steps["classify"].Connections[0].Guard)
}

func TestFlowLoaderReturnsNotFoundForMissingFile(t *testing.T) {
	l := NewFlowLoader(nil)
	_, err := l.LoadFlow(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	execErr := err.(*flow.ExecutionError)
	assert.Equal(t, flow.ErrNotFound, execErr.Type)
}

func TestFlowLoaderReturnsValidationErrorForMalformedYAML(t *testing.T) {
	path := writeTempFlow(t, "id: [unterminated")
	l := NewFlowLoader(nil)

	_, err := l.LoadFlow(context.Background(), path)
	require.Error(t, err)
	execErr := err.(*flow.ExecutionError)
	assert.Equal(t, flow.ErrValidation, execErr.Type)
}

func TestFlowLoaderPropagatesGraphValidationFailure(t *testing.T) {
	path := writeTempFlow(t, `
id: broken
entry_step: fetch
steps:
  - id: fetch
    kind: TOOL
    connections:
      - target: does_not_exist
`)
	l := NewFlowLoader(nil)

	_, err := l.LoadFlow(context.Background(), path)
	require.Error(t, err, "a dangling connection must fail Flow.Validate")
}

func TestFlowLoaderRejectsCancelledContext(t *testing.T) {
	path := writeTempFlow(t, validFlowYAML)
	l := NewFlowLoader(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.LoadFlow(ctx, path)
	require.Error(t, err)
}
