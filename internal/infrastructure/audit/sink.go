package audit

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/archflow/archengine/internal/domain/flow"
)

// Sink is an append-only audit trail writer, distinct from the operational
// logger: it records one structured JSON line per FlowState snapshot, using
// zerolog for its speed on the hot append path rather than the
// charmbracelet/log adapter used for human-facing operational logs.
type Sink struct {
	mu     sync.Mutex
	logger zerolog.Logger
}

// New constructs a Sink writing to w (os.Stdout if nil).
func New(w io.Writer) *Sink {
	if w == nil {
		w = os.Stdout
	}
	return &Sink{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Record appends one AuditLog entry as a structured JSON line.
func (s *Sink) Record(entry flow.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt := s.logger.Info().
		Str("flow_id", entry.FlowID).
		Int64("timestamp", entry.Timestamp).
		Str("status", string(entry.State.Status)).
		Int64("version", entry.State.Version)

	if entry.StepID != "" {
		evt = evt.Str("step_id", entry.StepID)
	}
	if entry.Result != nil {
		evt = evt.Str("step_status", string(entry.Result.Status)).
			Int("attempt", entry.Result.Attempt).
			Int64("duration_ms", entry.Result.DurationMS)
		if entry.Result.Error != nil {
			evt = evt.Str("error_type", string(entry.Result.Error.Type)).
				Str("error_message", entry.Result.Error.Message)
		}
	}
	evt.Msg("flow.audit")
}
