package batch

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/agent-verify/harness/internal/harness/benchmark"
)

// Store persists per-task results so a long batch run survives a crash and
// can be queried incrementally, grounded on the teacher's
// internal/memory/backend/sqlitevec.Backend (same pure-Go sqlite driver,
// same open/init/insert shape) — an enrichment over the original
// implementation, which only ever wrote one summary JSON file at the end.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) a SQLite result store at path.
// An empty path opens an in-memory database, useful for tests.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			experiment_id        TEXT NOT NULL,
			trial                INTEGER NOT NULL,
			task_id              TEXT NOT NULL,
			resolved             INTEGER NOT NULL,
			input_tokens         INTEGER NOT NULL,
			output_tokens        INTEGER NOT NULL,
			cache_creation_input INTEGER NOT NULL,
			cache_read_input     INTEGER NOT NULL,
			cost_usd             REAL NOT NULL,
			wall_clock_seconds   REAL NOT NULL,
			tool_call_count      INTEGER NOT NULL,
			verification_count   INTEGER NOT NULL,
			recovery_count       INTEGER NOT NULL,
			iterations           INTEGER NOT NULL,
			completion_reason    TEXT NOT NULL,
			error                TEXT,
			metadata             TEXT,
			created_at           DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create results table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_results_experiment ON results(experiment_id)`)
	return err
}

// Save records one trial's result for a task.
func (s *Store) Save(ctx context.Context, experimentID string, trial int, result benchmark.Result) error {
	metadata, err := json.Marshal(result.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (
			experiment_id, trial, task_id, resolved, input_tokens, output_tokens,
			cache_creation_input, cache_read_input, cost_usd,
			wall_clock_seconds, tool_call_count, verification_count, recovery_count,
			iterations, completion_reason, error, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		experimentID, trial, result.TaskID, result.Resolved, result.InputTokens, result.OutputTokens,
		result.CacheCreationInput, result.CacheReadInput, result.CostUSD,
		result.WallClockSeconds, result.ToolCallCount, result.VerificationCount, result.RecoveryCount,
		result.Iterations, result.CompletionReason, result.Error, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// ResultRow is one stored row, used when rendering the run summary.
type ResultRow struct {
	TaskID            string
	Trial             int
	Resolved          bool
	InputTokens       int64
	OutputTokens      int64
	WallClockSeconds  float64
	CompletionReason  string
	CreatedAt         time.Time
}

// ListByExperiment returns every stored row for an experiment, in insertion
// order.
func (s *Store) ListByExperiment(ctx context.Context, experimentID string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, trial, resolved, input_tokens, output_tokens, wall_clock_seconds,
		       completion_reason, created_at
		FROM results WHERE experiment_id = ? ORDER BY created_at ASC
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.TaskID, &r.Trial, &r.Resolved, &r.InputTokens, &r.OutputTokens,
			&r.WallClockSeconds, &r.CompletionReason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
