package emit

// Emitter receives and processes observability events from workflow execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: stderr, files (LogEmitter)
//   - In-memory capture: testing and dashboards (BufferedEmitter)
//   - Distributed tracing: OpenTelemetry (OTelEmitter)
//
// Implementations must be:
//   - Non-blocking: never stall workflow execution
//   - Thread-safe: Emit may be called concurrently from fan-out branches
//   - Resilient: never panic; handle backend failures internally
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	//
	// Emit must not block workflow execution and must not panic.
	// If the backend is unavailable or slow, events should be buffered
	// or dropped, never waited on.
	Emit(event Event)
}
