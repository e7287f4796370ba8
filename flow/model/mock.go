package model

import (
	"context"
	"sync"
)

// Mock is a test implementation of ChatModel.
//
// Use Mock in tests to drive workflows without real API calls. It returns
// scripted responses in order, records every invocation, and can inject a
// fixed error. Thread-safe.
//
// Example:
//
//	m := &model.Mock{
//	    Responses: []model.ChatOut{
//	        {Text: "First response"},
//	        {Text: "Second response"},
//	    },
//	}
type Mock struct {
	// ModelName is returned by Name(); defaults to "mock".
	ModelName string

	// Responses is the sequence of responses to return, one per call.
	// When exhausted, the last response repeats.
	Responses []ChatOut

	// Err, when set, is returned by Chat instead of a response.
	Err error

	// Calls records every Chat invocation.
	Calls []MockCall

	mu        sync.Mutex
	callIndex int
}

// MockCall records a single Chat invocation.
type MockCall struct {
	Messages []Message
	Tools    []ToolSpec
}

// Name implements ChatModel.
func (m *Mock) Name() string {
	if m.ModelName == "" {
		return "mock"
	}
	return m.ModelName
}

// Chat implements ChatModel. The call is recorded even when Err is set.
func (m *Mock) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Messages: messages, Tools: tools})

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// CallCount returns the number of Chat invocations so far.
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
