// Package model provides LLM chat adapters.
//
// ChatModel abstracts the differences between providers (OpenAI, Anthropic,
// Google) behind a unified chat API with optional tool calling. Concrete
// adapters live in the openai, anthropic, and google subpackages; Mock
// serves tests and Retrying adds backoff around any implementation.
package model

import "context"

// ChatModel is the interface implemented by LLM chat providers.
//
// Implementations handle provider-specific authentication, convert Messages
// to the provider's wire format, parse responses back into ChatOut, and
// respect context cancellation. They surface failures as *ProviderError so
// callers can distinguish retryable conditions.
type ChatModel interface {
	// Chat sends the conversation to the LLM and returns its response.
	// tools may be nil; when provided, the model may answer with tool
	// calls instead of (or in addition to) text.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)

	// Name returns the model identifier (e.g. "gpt-4o-mini"), used for
	// cost tracking and logging.
	Name() string
}

// Message is a single message in an LLM conversation.
//
// A typical conversation opens with an optional system message followed by
// alternating user and assistant messages. Tool outputs are fed back to the
// model as RoleTool messages.
type Message struct {
	// Role identifies the message sender; use the Role* constants.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Standard role constants, aligned with the conventions of the major
// providers.
const (
	// RoleSystem sets context or instructions, typically first.
	RoleSystem = "system"

	// RoleUser is input from the human user.
	RoleUser = "user"

	// RoleAssistant is a response generated by the LLM.
	RoleAssistant = "assistant"

	// RoleTool carries the output of a tool invocation back to the LLM.
	RoleTool = "tool"
)

// ToolSpec describes a tool the LLM may call.
//
// Schema follows JSON Schema and describes the expected input parameters:
//
//	ToolSpec{
//	    Name:        "web_search",
//	    Description: "Search the web for current information",
//	    Schema: map[string]any{
//	        "type": "object",
//	        "properties": map[string]any{
//	            "query": map[string]any{
//	                "type":        "string",
//	                "description": "The search query",
//	            },
//	        },
//	        "required": []string{"query"},
//	    },
//	}
type ToolSpec struct {
	// Name uniquely identifies the tool (lowercase with underscores).
	Name string `json:"name"`

	// Description explains what the tool does; the LLM uses it to decide
	// when to call the tool.
	Description string `json:"description"`

	// Schema defines the tool's input parameters in JSON Schema format.
	// Optional for tools with no parameters.
	Schema map[string]any `json:"schema,omitempty"`
}

// ToolCall is a request from the LLM to invoke a tool.
type ToolCall struct {
	// ID is the provider-assigned call identifier, when available.
	ID string `json:"id,omitempty"`

	// Name identifies which tool to call; matches a ToolSpec.Name.
	Name string `json:"name"`

	// Input holds the call arguments, shaped by the tool's Schema.
	// May be nil for tools that take no parameters.
	Input map[string]any `json:"input,omitempty"`
}

// Usage reports token consumption for a single chat completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatOut is the output of a chat completion.
//
// The LLM may respond with text only, tool calls only, or both.
type ChatOut struct {
	// Text is the generated response; may be empty when the model only
	// requests tool calls.
	Text string `json:"text"`

	// ToolCalls lists tools the LLM wants invoked, in order.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage reports the tokens consumed by this completion.
	Usage Usage `json:"usage"`
}
