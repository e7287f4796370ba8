package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-memory implementation of Store[S].
//
// Designed for tests, development, and short-lived workflows where
// persistence across process restarts isn't required. Thread-safe.
//
// Data is lost when the process exits; memory grows with run history.
// For durable storage use SQLite, MySQL, or Redis.
type Memory[S any] struct {
	mu          sync.RWMutex
	steps       map[string]map[int]StepRecord[S] // runID -> step -> record
	checkpoints map[string]map[string]Checkpoint[S]
}

// NewMemory creates an empty in-memory store.
func NewMemory[S any]() *Memory[S] {
	return &Memory[S]{
		steps:       make(map[string]map[int]StepRecord[S]),
		checkpoints: make(map[string]map[string]Checkpoint[S]),
	}
}

// SaveStep persists a step record, overwriting any record with the same
// (RunID, Step).
func (m *Memory[S]) SaveStep(_ context.Context, rec StepRecord[S]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.steps[rec.RunID]
	if !ok {
		run = make(map[int]StepRecord[S])
		m.steps[rec.RunID] = run
	}
	run[rec.Step] = rec
	return nil
}

// LatestStep returns the record with the highest step number for a run.
// Handles out-of-order saves correctly.
func (m *Memory[S]) LatestStep(_ context.Context, runID string) (StepRecord[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.steps[runID]
	if !ok || len(run) == 0 {
		var zero StepRecord[S]
		return zero, ErrNotFound
	}

	var latest StepRecord[S]
	found := false
	for _, rec := range run {
		if !found || rec.Step > latest.Step {
			latest = rec
			found = true
		}
	}
	return latest, nil
}

// SaveCheckpoint persists a named snapshot, overwriting any checkpoint with
// the same (RunID, Name).
func (m *Memory[S]) SaveCheckpoint(_ context.Context, cp Checkpoint[S]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.checkpoints[cp.RunID]
	if !ok {
		run = make(map[string]Checkpoint[S])
		m.checkpoints[cp.RunID] = run
	}
	run[cp.Name] = cp
	return nil
}

// LoadCheckpoint retrieves a checkpoint by run and name.
func (m *Memory[S]) LoadCheckpoint(_ context.Context, runID, name string) (Checkpoint[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[runID][name]
	if !ok {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	return cp, nil
}

// ListRuns returns the IDs of all runs with at least one step, sorted.
func (m *Memory[S]) ListRuns(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]string, 0, len(m.steps))
	for id, recs := range m.steps {
		if len(recs) > 0 {
			runs = append(runs, id)
		}
	}
	sort.Strings(runs)
	return runs, nil
}
