package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL is a MySQL/MariaDB implementation of Store[S].
//
// Designed for:
//   - Production workflows requiring durable persistence
//   - Multiple workers sharing run history
//   - Long-running workflows that survive process restarts
//
// MySQL uses connection pooling for reliability.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQL[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQL creates a MySQL-backed store from a DSN.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example:
//
//	user:pass@tcp(localhost:3306)/gaiaflow
//
// Never hardcode credentials; read the DSN from the environment:
//
//	st, err := store.NewMySQL[MyState](os.Getenv("GAIAFLOW_MYSQL_DSN"))
//
// The store pings the server, creates the required tables if missing, and
// configures the connection pool.
func NewMySQL[S any](dsn string) (*MySQL[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	st := &MySQL[S]{db: db}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return st, nil
}

// createTables creates the required schema if it doesn't exist.
func (m *MySQL[S]) createTables(ctx context.Context) error {
	stepsTable := `
		CREATE TABLE IF NOT EXISTS workflow_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			saved_at TIMESTAMP(6) NOT NULL,
			INDEX idx_run_step (run_id, step),
			UNIQUE KEY unique_run_step (run_id, step)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, stepsTable); err != nil {
		return fmt.Errorf("failed to create workflow_steps table: %w", err)
	}

	checkpointsTable := `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			step INT NOT NULL,
			state JSON NOT NULL,
			saved_at TIMESTAMP(6) NOT NULL,
			UNIQUE KEY unique_run_name (run_id, name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, checkpointsTable); err != nil {
		return fmt.Errorf("failed to create workflow_checkpoints table: %w", err)
	}

	return nil
}

// SaveStep persists a step record, replacing any row with the same
// (run_id, step).
func (m *MySQL[S]) SaveStep(ctx context.Context, rec StepRecord[S]) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO workflow_steps (run_id, step, node_id, state, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			node_id = VALUES(node_id),
			state = VALUES(state),
			saved_at = VALUES(saved_at)
	`
	_, err = m.db.ExecContext(ctx, query, rec.RunID, rec.Step, rec.NodeID, stateJSON, rec.SavedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save step: %w", err)
	}
	return nil
}

// LatestStep retrieves the record with the highest step number for a run.
// Returns ErrNotFound when the run has no steps.
func (m *MySQL[S]) LatestStep(ctx context.Context, runID string) (StepRecord[S], error) {
	var zero StepRecord[S]
	if err := m.checkOpen(); err != nil {
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
	var stateJSON []byte
	err := m.db.QueryRowContext(ctx, query, runID).Scan(&rec.Step, &rec.NodeID, &stateJSON, &rec.SavedAt)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load latest step: %w", err)
	}

	if err := json.Unmarshal(stateJSON, &rec.State); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return rec, nil
}

// SaveCheckpoint persists a named snapshot, replacing any row with the same
// (run_id, name).
func (m *MySQL[S]) SaveCheckpoint(ctx context.Context, cp Checkpoint[S]) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO workflow_checkpoints (run_id, name, node_id, step, state, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			node_id = VALUES(node_id),
			step = VALUES(step),
			state = VALUES(state),
			saved_at = VALUES(saved_at)
	`
	_, err = m.db.ExecContext(ctx, query, cp.RunID, cp.Name, cp.NodeID, cp.Step, stateJSON, cp.SavedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint retrieves a checkpoint by run and name.
// Returns ErrNotFound when it does not exist.
func (m *MySQL[S]) LoadCheckpoint(ctx context.Context, runID, name string) (Checkpoint[S], error) {
	var zero Checkpoint[S]
	if err := m.checkOpen(); err != nil {
		return zero, err
	}

	query := `
		SELECT node_id, step, state, saved_at
		FROM workflow_checkpoints
		WHERE run_id = ? AND name = ?
	`

	cp := Checkpoint[S]{RunID: runID, Name: name}
	var stateJSON []byte
	err := m.db.QueryRowContext(ctx, query, runID, name).Scan(&cp.NodeID, &cp.Step, &stateJSON, &cp.SavedAt)
	if err == sql.ErrNoRows {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return cp, nil
}

// ListRuns returns the IDs of all runs with at least one step, sorted.
func (m *MySQL[S]) ListRuns(ctx context.Context) ([]string, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT DISTINCT run_id FROM workflow_steps ORDER BY run_id")
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
func (m *MySQL[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQL[S]) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

func (m *MySQL[S]) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
