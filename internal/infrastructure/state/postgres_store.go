// Package state implements ports.StateStore, either purely in-process
// (MemoryStore) or durably against PostgreSQL (PostgresStore), storing the
// FlowState snapshot as JSONB so the schema can evolve without migrations
// tracking every domain field.
package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archflow/archengine/internal/domain/flow"
	"github.com/archflow/archengine/internal/ports"
)

// PostgresStore implements ports.StateStore backed by PostgreSQL. The
// caller creates and closes the *pgxpool.Pool; PostgresStore never owns
// its lifecycle.
type PostgresStore struct {
	pool *pgxpool.Pool
	cfg  pgStoreConfig
}

type pgStoreConfig struct {
	table string
}

// Option configures a PostgresStore.
type Option func(*pgStoreConfig)

// WithTable overrides the default "flow_states" table name.
func WithTable(name string) Option {
	return func(c *pgStoreConfig) { c.table = name }
}

// NewPostgresStore constructs a PostgresStore over an externally-owned pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	cfg := pgStoreConfig{table: "flow_states"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &PostgresStore{pool: pool, cfg: cfg}
}

// EnsureSchema creates the backing table and audit table if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			flow_id TEXT PRIMARY KEY,
			version BIGINT NOT NULL,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS %s_audit (
			id BIGSERIAL PRIMARY KEY,
			flow_id TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			entry JSONB NOT NULL
		);
	`, s.cfg.table, s.cfg.table))
	return err
}

func (s *PostgresStore) Create(ctx context.Context, initial *flow.FlowState) error {
	payload, err := json.Marshal(initial)
	if err != nil {
		return flow.NewExecutionError(flow.ErrSystem, "state.postgres", "marshal initial state", err)
	}
	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (flow_id, version, state) VALUES ($1, $2, $3)`, s.cfg.table),
		initial.FlowID, initial.Version, payload)
	if err != nil {
		return flow.NewExecutionError(flow.ErrConflict, "state.postgres", "flow already exists: "+initial.FlowID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, flowID string) (*flow.FlowState, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT state FROM %s WHERE flow_id = $1`, s.cfg.table), flowID).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, flow.NewExecutionError(flow.ErrNotFound, "state.postgres", "flow not found: "+flowID, nil)
		}
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "query flow state", err)
	}
	var fs flow.FlowState
	if err := json.Unmarshal(payload, &fs); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "unmarshal flow state", err)
	}
	return &fs, nil
}

func (s *PostgresStore) Update(ctx context.Context, flowID string, update ports.StateUpdate) (*flow.FlowState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var payload []byte
	if err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT state FROM %s WHERE flow_id = $1 FOR UPDATE`, s.cfg.table), flowID).Scan(&payload); err != nil {
		if err == pgx.ErrNoRows {
			return nil, flow.NewExecutionError(flow.ErrNotFound, "state.postgres", "flow not found: "+flowID, nil)
		}
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "lock flow state", err)
	}

	var fs flow.FlowState
	if err := json.Unmarshal(payload, &fs); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "unmarshal flow state", err)
	}

	if update.Status != nil {
		if err := fs.Transition(*update.Status); err != nil {
			return nil, err
		}
	}
	if update.Variables != nil {
		if fs.Variables == nil {
			fs.Variables = make(map[string]flow.Value, len(update.Variables))
		}
		for k, v := range update.Variables {
			fs.Variables[k] = v.Clone()
		}
	}
	if update.CurrentStep != nil {
		fs.CurrentStep = *update.CurrentStep
	}
	if update.StepResult != nil {
		if fs.Completed == nil {
			fs.Completed = make(map[string]flow.StepStatus)
		}
		fs.Completed[update.StepResult.StepID] = update.StepResult.Status
	}
	if update.Error != nil {
		fs.LastError = update.Error
	}
	fs.Version++

	newPayload, err := json.Marshal(&fs)
	if err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "marshal flow state", err)
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET state = $1, version = $2, updated_at = now() WHERE flow_id = $3`, s.cfg.table),
		newPayload, fs.Version, flowID); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "persist flow state", err)
	}

	entry := flow.NewAuditLog(0, &fs, stepIDOf(update.StepResult), update.StepResult)
	auditPayload, err := json.Marshal(&entry)
	if err == nil {
		_, _ = tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s_audit (flow_id, entry) VALUES ($1, $2)`, s.cfg.table), flowID, auditPayload)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "commit transaction", err)
	}
	return &fs, nil
}

func (s *PostgresStore) Replace(ctx context.Context, flowID string, newState *flow.FlowState) (*flow.FlowState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var currentVersion int64
	if err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT version FROM %s WHERE flow_id = $1 FOR UPDATE`, s.cfg.table), flowID).Scan(&currentVersion); err != nil {
		if err == pgx.ErrNoRows {
			return nil, flow.NewExecutionError(flow.ErrNotFound, "state.postgres", "flow not found: "+flowID, nil)
		}
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "lock flow state", err)
	}

	fs := *newState.Clone()
	fs.FlowID = flowID
	fs.Version = currentVersion + 1

	payload, err := json.Marshal(&fs)
	if err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "marshal flow state", err)
	}
	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET state = $1, version = $2, updated_at = now() WHERE flow_id = $3`, s.cfg.table),
		payload, fs.Version, flowID); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "persist flow state", err)
	}

	entry := flow.NewAuditLog(0, &fs, "", nil)
	auditPayload, err := json.Marshal(&entry)
	if err == nil {
		_, _ = tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s_audit (flow_id, entry) VALUES ($1, $2)`, s.cfg.table), flowID, auditPayload)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "commit transaction", err)
	}
	return &fs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, flowID string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE flow_id = $1`, s.cfg.table), flowID)
	if err != nil {
		return flow.NewExecutionError(flow.ErrSystem, "state.postgres", "delete flow state", err)
	}
	return nil
}

func (s *PostgresStore) AuditTrail(ctx context.Context, flowID string) ([]flow.AuditLog, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT entry FROM %s_audit WHERE flow_id = $1 ORDER BY id ASC`, s.cfg.table), flowID)
	if err != nil {
		return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "query audit trail", err)
	}
	defer rows.Close()

	var out []flow.AuditLog
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "scan audit entry", err)
		}
		var entry flow.AuditLog
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, flow.NewExecutionError(flow.ErrSystem, "state.postgres", "unmarshal audit entry", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ ports.StateStore = (*PostgresStore)(nil)
