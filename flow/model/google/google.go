// Package google adapts Google's Gemini API to model.ChatModel.
package google

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/gaiaflow/gaiaflow/flow/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gemini-2.0-flash"

// ChatModel implements model.ChatModel for Google's Gemini models.
//
// Supports text chat and function calling. Close should be called when the
// model is no longer needed to release the underlying client.
//
// Example:
//
//	m, err := google.New(os.Getenv("GOOGLE_API_KEY"), "gemini-2.0-flash")
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
type ChatModel struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// Option configures a ChatModel. Nil options are ignored.
type Option func(*ChatModel)

// WithTemperature sets the sampling temperature. Unset leaves the
// provider default.
func WithTemperature(t float32) Option {
	return func(m *ChatModel) {
		m.temperature = &t
	}
}

// New creates a Gemini-backed ChatModel.
//
// The API key comes from https://aistudio.google.com/. An empty modelName
// selects DefaultModel. Returns an error when the client cannot be created.
func New(apiKey, modelName string, opts ...Option) (*ChatModel, error) {
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	m := &ChatModel{
		client: client,
		model:  modelName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Name returns the model identifier.
func (m *ChatModel) Name() string {
	return m.model
}

// Close releases the underlying client.
func (m *ChatModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Chat implements model.ChatModel.
//
// A leading system message becomes the system instruction; the remaining
// conversation is flattened into a single prompt with role prefixes, which
// is how a stateless GenerateContent call carries multi-turn context.
// Failures are normalized to *model.ProviderError.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	gm := m.client.GenerativeModel(m.model)
	if m.temperature != nil {
		gm.SetTemperature(*m.temperature)
	}
	if len(tools) > 0 {
		gm.Tools = toTools(tools)
	}

	system, prompt := flatten(messages)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return model.ChatOut{}, model.Classify("google", err)
	}

	var out model.ChatOut
	if resp.UsageMetadata != nil {
		out.Usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		// Typically a safety block; surface what there is.
		return out, nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				Name:  p.Name,
				Input: p.Args,
			})
		}
	}
	return out, nil
}

// flatten extracts the system prompt and renders the remaining turns as a
// single role-prefixed transcript.
func flatten(messages []model.Message) (system, prompt string) {
	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case model.RoleAssistant:
			sb.WriteString("Assistant: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		default:
			sb.WriteString("User: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n\n")
		}
	}
	return system, strings.TrimSpace(sb.String())
}

func toTools(specs []model.ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(specs))
	for i, spec := range specs {
		decls[i] = &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toSchema(spec.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toSchema converts a JSON Schema map into the SDK's schema type.
// Unknown fields are dropped.
func toSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		out.Type = toType(t)
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, sub := range props {
			if subMap, ok := sub.(map[string]any); ok {
				out.Properties[name] = toSchema(subMap)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toSchema(items)
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}
	return out
}

func toType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
