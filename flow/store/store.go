// Package store provides persistence backends for workflow runs.
//
// A Store keeps two kinds of records: step records, written by the engine
// after every node execution, and named checkpoints, created on demand.
// Implementations cover in-memory (testing), SQLite (local single-process),
// MySQL (shared relational) and Redis (low-latency, optional TTL).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run or checkpoint does not exist.
var ErrNotFound = errors.New("not found")

// StepRecord is the persisted outcome of a single workflow step: the merged
// state after the node at NodeID ran. Steps are keyed by (RunID, Step) and
// saving the same key again overwrites the record.
type StepRecord[S any] struct {
	// RunID identifies the workflow execution this step belongs to.
	RunID string `json:"run_id"`

	// Step is the sequential step number (1-indexed).
	Step int `json:"step"`

	// NodeID identifies which node produced this state.
	NodeID string `json:"node_id"`

	// State is the workflow state after this step's delta was merged.
	State S `json:"state"`

	// SavedAt is when the record was written.
	SavedAt time.Time `json:"saved_at"`
}

// Checkpoint is a named snapshot of workflow state, keyed by (RunID, Name).
// Saving under an existing name overwrites the checkpoint.
type Checkpoint[S any] struct {
	// RunID identifies the workflow execution this checkpoint belongs to.
	RunID string `json:"run_id"`

	// Name is the user-chosen checkpoint label, unique within the run.
	Name string `json:"name"`

	// NodeID is the node whose step the checkpoint captured.
	NodeID string `json:"node_id"`

	// Step is the step number at which the checkpoint was created.
	Step int `json:"step"`

	// State is the snapshotted workflow state.
	State S `json:"state"`

	// SavedAt is when the checkpoint was written.
	SavedAt time.Time `json:"saved_at"`
}

// Store persists workflow steps and checkpoints.
//
// The engine writes a StepRecord after every node execution, so the latest
// record is always a consistent resumption point. Implementations must be
// safe for concurrent use; parallel fan-out branches persist concurrently.
//
// Type parameter S is the state type to persist. State must round-trip
// through encoding/json for the database-backed implementations.
type Store[S any] interface {
	// SaveStep persists the state after a node execution step, overwriting
	// any existing record with the same (RunID, Step).
	SaveStep(ctx context.Context, rec StepRecord[S]) error

	// LatestStep retrieves the record with the highest step number for a
	// run. Returns ErrNotFound when the run has no persisted steps.
	LatestStep(ctx context.Context, runID string) (StepRecord[S], error)

	// SaveCheckpoint persists a named snapshot, overwriting any existing
	// checkpoint with the same (RunID, Name).
	SaveCheckpoint(ctx context.Context, cp Checkpoint[S]) error

	// LoadCheckpoint retrieves a checkpoint by run and name.
	// Returns ErrNotFound when it does not exist.
	LoadCheckpoint(ctx context.Context, runID, name string) (Checkpoint[S], error)

	// ListRuns returns the IDs of all runs with at least one persisted
	// step, sorted lexicographically.
	ListRuns(ctx context.Context) ([]string, error)
}
