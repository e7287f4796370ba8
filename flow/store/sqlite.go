package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a SQLite implementation of Store[S].
//
// It stores workflow steps and checkpoints in a single-file database.
// Designed for:
//   - Development and testing with zero setup
//   - Single-process workflows requiring local persistence
//   - Prototyping before migrating to a shared store
//
// The store runs in WAL mode so readers don't block on the single writer.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLite[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLite creates a SQLite-backed store at the given path.
//
// The path can be a file ("./runs.db"), an absolute path, or ":memory:" for
// an in-memory database that is lost on close. The store creates the
// database file and tables on first use, enables WAL mode, and sets a busy
// timeout so concurrent access waits instead of failing.
//
// Example:
//
//	st, err := store.NewSQLite[MyState]("./runs.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func NewSQLite[S any](path string) (*SQLite[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY churn from the driver side.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	st := &SQLite[S]{db: db, path: path}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return st, nil
}

// createTables creates the required schema if it doesn't exist.
func (s *SQLite[S]) createTables(ctx context.Context) error {
	stepsTable := `
		CREATE TABLE IF NOT EXISTS workflow_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			state TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			UNIQUE(run_id, step)
		)
	`
	if _, err := s.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create workflow_steps table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_steps_run_step ON workflow_steps(run_id, step)"); err != nil {
		return fmt.Errorf("failed to create idx_steps_run_step: %w", err)
	}

	checkpointsTable := `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			node_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			state TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			UNIQUE(run_id, name)
		)
	`
	if _, err := s.db.ExecContext(ctx, checkpointsTable); err != nil {
		return fmt.Errorf("failed to create workflow_checkpoints table: %w", err)
	}

	return nil
}

// SaveStep persists a step record, replacing any row with the same
// (run_id, step).
func (s *SQLite[S]) SaveStep(ctx context.Context, rec StepRecord[S]) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO workflow_steps (run_id, step, node_id, state, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			node_id = excluded.node_id,
			state = excluded.state,
			saved_at = excluded.saved_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.RunID, rec.Step, rec.NodeID, string(stateJSON), rec.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LatestStep retrieves the record with the highest step number for a run.
// Returns ErrNotFound when the run has no steps.
func (s *SQLite[S]) LatestStep(ctx context.Context, runID string) (StepRecord[S], error) {
	var zero StepRecord[S]
	if err := s.checkOpen(); err != nil {
		return zero, err
	}

	query := `
		SELECT step, node_id, state, saved_at
		FROM workflow_steps
		WHERE run_id = ?
		ORDER BY step DESC
		LIMIT 1
	`

	rec := StepRecord[S]{RunID: runID}
	var stateJSON, savedAt string
	err := s.db.QueryRowContext(ctx, query, runID).Scan(&rec.Step, &rec.NodeID, &stateJSON, &savedAt)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load latest step: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if rec.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return zero, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	return rec, nil
}

// SaveCheckpoint persists a named snapshot, replacing any row with the same
// (run_id, name).
func (s *SQLite[S]) SaveCheckpoint(ctx context.Context, cp Checkpoint[S]) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO workflow_checkpoints (run_id, name, node_id, step, state, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			node_id = excluded.node_id,
			step = excluded.step,
			state = excluded.state,
			saved_at = excluded.saved_at
	`
	_, err = s.db.ExecContext(ctx, query,
		cp.RunID, cp.Name, cp.NodeID, cp.Step, string(stateJSON), cp.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves a checkpoint by run and name.
// Returns ErrNotFound when it does not exist.
func (s *SQLite[S]) LoadCheckpoint(ctx context.Context, runID, name string) (Checkpoint[S], error) {
	var zero Checkpoint[S]
	if err := s.checkOpen(); err != nil {
		return zero, err
	}

	query := `
		SELECT node_id, step, state, saved_at
		FROM workflow_checkpoints
		WHERE run_id = ? AND name = ?
	`

	cp := Checkpoint[S]{RunID: runID, Name: name}
	var stateJSON, savedAt string
	err := s.db.QueryRowContext(ctx, query, runID, name).Scan(&cp.NodeID, &cp.Step, &stateJSON, &savedAt)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if cp.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return zero, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	return cp, nil
}

// ListRuns returns the IDs of all runs with at least one step, sorted.
func (s *SQLite[S]) ListRuns(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT run_id FROM workflow_steps ORDER BY run_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run ID: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// Close closes the database connection. Subsequent operations fail;
// calling Close again is a no-op.
func (s *SQLite[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLite[S]) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLite[S]) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *SQLite[S]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
