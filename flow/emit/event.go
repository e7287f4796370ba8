package emit

import "time"

// Event represents an observability event emitted during workflow execution.
//
// Events provide insight into workflow behavior:
//   - Node completions and transitions
//   - Checkpoint operations
//   - Resume points
//   - Errors and warnings
//
// Events are sent to an Emitter, which can log them, buffer them for
// inspection, or export them as OpenTelemetry spans.
type Event struct {
	// RunID identifies the workflow execution that emitted this event.
	RunID string

	// Step is the sequential step number in the workflow (1-indexed).
	// Zero for run-level events.
	Step int

	// NodeID identifies which node this event concerns.
	// Empty for run-level events.
	NodeID string

	// Msg is a short machine-friendly description, e.g. "node_done",
	// "checkpoint_saved", "run_resumed".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "checkpoint": checkpoint name
	//   - "error": error details
	//   - "tokens": token count for LLM calls
	Meta map[string]any

	// At is when the event was emitted. The engine fills it if left zero.
	At time.Time
}
