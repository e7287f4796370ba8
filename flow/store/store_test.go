package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDoc is the state type shared by the store tests. Includes a slice and
// a map to exercise JSON round-tripping in every backend.
type testDoc struct {
	Value string            `json:"value"`
	Count int               `json:"count"`
	Items []string          `json:"items,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
}

// savedAt returns a timestamp every backend can round-trip exactly.
// MySQL persists TIMESTAMP(6), so stay at microsecond precision.
func savedAt() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// runStoreContract verifies that a Store implementation honors the interface
// contract. Every backend test calls it against a fresh store.
func runStoreContract(t *testing.T, st Store[testDoc]) {
	ctx := context.Background()

	t.Run("save and load latest step", func(t *testing.T) {
		rec := StepRecord[testDoc]{
			RunID:  "contract-run-1",
			Step:   1,
			NodeID: "plan",
			State: testDoc{
				Value: "planned",
				Count: 1,
				Items: []string{"a", "b"},
				Tags:  map[string]string{"kind": "test"},
			},
			SavedAt: savedAt(),
		}
		require.NoError(t, st.SaveStep(ctx, rec))

		loaded, err := st.LatestStep(ctx, "contract-run-1")
		require.NoError(t, err)
		assert.Equal(t, rec.RunID, loaded.RunID)
		assert.Equal(t, rec.Step, loaded.Step)
		assert.Equal(t, rec.NodeID, loaded.NodeID)
		assert.Equal(t, rec.State, loaded.State)
		assert.True(t, loaded.SavedAt.Equal(rec.SavedAt), "SavedAt: want %v, got %v", rec.SavedAt, loaded.SavedAt)
	})

	t.Run("latest follows highest step", func(t *testing.T) {
		runID := "contract-run-order"
		for _, step := range []int{1, 3, 2} {
			rec := StepRecord[testDoc]{
				RunID:   runID,
				Step:    step,
				NodeID:  "node",
				State:   testDoc{Count: step},
				SavedAt: savedAt(),
			}
			require.NoError(t, st.SaveStep(ctx, rec))
		}

		loaded, err := st.LatestStep(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Step, "out-of-order saves must not change the latest step")
		assert.Equal(t, 3, loaded.State.Count)
	})

	t.Run("same step upserts", func(t *testing.T) {
		runID := "contract-run-upsert"
		first := StepRecord[testDoc]{
			RunID: runID, Step: 1, NodeID: "plan",
			State: testDoc{Value: "first"}, SavedAt: savedAt(),
		}
		require.NoError(t, st.SaveStep(ctx, first))

		second := first
		second.NodeID = "plan-redo"
		second.State = testDoc{Value: "second"}
		second.SavedAt = savedAt()
		require.NoError(t, st.SaveStep(ctx, second))

		loaded, err := st.LatestStep(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "plan-redo", loaded.NodeID)
		assert.Equal(t, "second", loaded.State.Value)
	})

	t.Run("unknown run is not found", func(t *testing.T) {
		_, err := st.LatestStep(ctx, "contract-run-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("runs are isolated", func(t *testing.T) {
		for _, runID := range []string{"contract-iso-a", "contract-iso-b"} {
			rec := StepRecord[testDoc]{
				RunID: runID, Step: 1, NodeID: "node",
				State: testDoc{Value: runID}, SavedAt: savedAt(),
			}
			require.NoError(t, st.SaveStep(ctx, rec))
		}

		a, err := st.LatestStep(ctx, "contract-iso-a")
		require.NoError(t, err)
		assert.Equal(t, "contract-iso-a", a.State.Value)

		b, err := st.LatestStep(ctx, "contract-iso-b")
		require.NoError(t, err)
		assert.Equal(t, "contract-iso-b", b.State.Value)
	})

	t.Run("checkpoint round trip", func(t *testing.T) {
		cp := Checkpoint[testDoc]{
			RunID:   "contract-run-ckpt",
			Name:    "after-plan",
			NodeID:  "plan",
			Step:    2,
			State:   testDoc{Value: "checkpointed", Count: 2},
			SavedAt: savedAt(),
		}
		require.NoError(t, st.SaveCheckpoint(ctx, cp))

		loaded, err := st.LoadCheckpoint(ctx, "contract-run-ckpt", "after-plan")
		require.NoError(t, err)
		assert.Equal(t, cp.Name, loaded.Name)
		assert.Equal(t, cp.NodeID, loaded.NodeID)
		assert.Equal(t, cp.Step, loaded.Step)
		assert.Equal(t, cp.State, loaded.State)
	})

	t.Run("checkpoint name overwrites", func(t *testing.T) {
		runID := "contract-run-ckpt-overwrite"
		cp := Checkpoint[testDoc]{
			RunID: runID, Name: "latest", NodeID: "plan", Step: 1,
			State: testDoc{Value: "old"}, SavedAt: savedAt(),
		}
		require.NoError(t, st.SaveCheckpoint(ctx, cp))

		cp.NodeID = "verify"
		cp.Step = 4
		cp.State = testDoc{Value: "new"}
		cp.SavedAt = savedAt()
		require.NoError(t, st.SaveCheckpoint(ctx, cp))

		loaded, err := st.LoadCheckpoint(ctx, runID, "latest")
		require.NoError(t, err)
		assert.Equal(t, "verify", loaded.NodeID)
		assert.Equal(t, 4, loaded.Step)
		assert.Equal(t, "new", loaded.State.Value)
	})

	t.Run("unknown checkpoint is not found", func(t *testing.T) {
		_, err := st.LoadCheckpoint(ctx, "contract-run-ckpt", "never-saved")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = st.LoadCheckpoint(ctx, "contract-run-missing", "after-plan")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list runs", func(t *testing.T) {
		runs, err := st.ListRuns(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, "contract-run-1")
		assert.Contains(t, runs, "contract-run-order")
		assert.IsIncreasing(t, runs, "run IDs must be sorted")
	})
}
