// Package tool defines the tool abstraction LLM agents invoke.
//
// A Tool pairs a JSON Schema description (shown to the model) with a Run
// function (executed when the model calls it). Registry collects tools,
// exposes their specs, and dispatches model tool calls.
package tool

import "context"

// Tool is an executable capability an LLM can invoke.
//
// Tools let agents interact with the outside world: web searches, file
// reads, calculations, API calls. Implementations should validate input,
// respect context cancellation, and return output as text the model can
// read directly.
//
// Example implementation:
//
//	type EchoTool struct{}
//
//	func (EchoTool) Name() string        { return "echo" }
//	func (EchoTool) Description() string { return "Echoes the input text" }
//	func (EchoTool) Schema() map[string]any {
//	    return map[string]any{
//	        "type": "object",
//	        "properties": map[string]any{
//	            "text": map[string]any{"type": "string"},
//	        },
//	        "required": []string{"text"},
//	    }
//	}
//	func (EchoTool) Run(ctx context.Context, input map[string]any) (string, error) {
//	    text, _ := input["text"].(string)
//	    return text, nil
//	}
type Tool interface {
	// Name returns the unique tool identifier, lowercase with
	// underscores (e.g. "web_search").
	Name() string

	// Description explains what the tool does; shown to the model.
	Description() string

	// Schema describes the input parameters in JSON Schema format.
	// May return nil for parameterless tools.
	Schema() map[string]any

	// Run executes the tool. Input keys match the Schema properties;
	// the returned string is fed back to the model verbatim.
	Run(ctx context.Context, input map[string]any) (string, error)
}

// StringArg extracts a required string argument from tool input.
// Returns "" and false when the key is missing or not a string.
func StringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key].(string)
	return v, ok && v != ""
}
