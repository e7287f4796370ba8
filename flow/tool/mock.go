package tool

import (
	"context"
	"sync"
)

// Mock is a test implementation of Tool.
//
// Returns scripted outputs in order, records every invocation, and can
// inject a fixed error. Thread-safe.
//
// Example:
//
//	m := &tool.Mock{
//	    ToolName:  "web_search",
//	    Responses: []string{"result one", "result two"},
//	}
type Mock struct {
	// ToolName is returned by Name(); must be set.
	ToolName string

	// ToolDescription is returned by Description().
	ToolDescription string

	// ToolSchema is returned by Schema(); may be nil.
	ToolSchema map[string]any

	// Responses is the sequence of outputs to return, one per call.
	// When exhausted, the last response repeats.
	Responses []string

	// Err, when set, is returned by Run instead of a response.
	Err error

	// Calls records the input of every Run invocation.
	Calls []map[string]any

	mu        sync.Mutex
	callIndex int
}

// Name implements Tool.
func (m *Mock) Name() string {
	return m.ToolName
}

// Description implements Tool.
func (m *Mock) Description() string {
	if m.ToolDescription == "" {
		return "mock tool"
	}
	return m.ToolDescription
}

// Schema implements Tool.
func (m *Mock) Schema() map[string]any {
	return m.ToolSchema
}

// Run implements Tool. The call is recorded even when Err is set.
func (m *Mock) Run(ctx context.Context, input map[string]any) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, input)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// CallCount returns the number of Run invocations so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears the call history and restarts the response sequence.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}
