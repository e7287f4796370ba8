// Package anthropic adapts Anthropic's Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gaiaflow/gaiaflow/flow/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "claude-3-5-haiku-20241022"

// DefaultMaxTokens bounds completion length; the Messages API requires an
// explicit limit.
const DefaultMaxTokens = 4096

// ChatModel implements model.ChatModel for Anthropic's Claude models.
//
// Supports text chat and tool use. The underlying SDK client is safe for
// concurrent use.
//
// Example:
//
//	m := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"), "claude-3-5-sonnet-latest")
//	out, err := m.Chat(ctx, messages, nil)
type ChatModel struct {
	client    *sdk.Client
	model     string
	maxTokens int64
}

// Option configures a ChatModel. Nil options are ignored.
type Option func(*ChatModel)

// WithMaxTokens overrides DefaultMaxTokens for completions.
func WithMaxTokens(n int64) Option {
	return func(m *ChatModel) {
		if n > 0 {
			m.maxTokens = n
		}
	}
}

// New creates an Anthropic-backed ChatModel.
//
// The API key comes from https://console.anthropic.com/. An empty modelName
// selects DefaultModel.
func New(apiKey, modelName string, opts ...Option) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}

	client := sdk.NewClient(option.WithAPIKey(apiKey))
	m := &ChatModel{
		client:    &client,
		model:     modelName,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Name returns the model identifier.
func (m *ChatModel) Name() string {
	return m.model
}

// Chat implements model.ChatModel.
//
// A leading system message becomes the API's system prompt; the rest of the
// conversation maps to user/assistant turns. Failures are normalized to
// *model.ProviderError.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	system, turns := splitSystem(messages)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages:  turns,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = toTools(tools)
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, model.Classify("anthropic", err)
	}

	out := model.ChatOut{
		Usage: model.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}

	for _, block := range message.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			call := model.ToolCall{
				ID:   block.ID,
				Name: block.Name,
			}
			if len(block.Input) > 0 {
				var input map[string]any
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return model.ChatOut{}, &model.ProviderError{
						Provider: "anthropic",
						Code:     "bad_request",
						Message:  "malformed tool_use input: " + err.Error(),
					}
				}
				call.Input = input
			}
			out.ToolCalls = append(out.ToolCalls, call)
		}
	}

	return out, nil
}

// splitSystem extracts the system prompt from leading system messages and
// converts the remaining conversation to SDK message params.
func splitSystem(messages []model.Message) (string, []sdk.MessageParam) {
	system := ""
	turns := make([]sdk.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case model.RoleAssistant:
			turns = append(turns, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			turns = append(turns, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}
	return system, turns
}

func toTools(specs []model.ToolSpec) []sdk.ToolUnionParam {
	tools := make([]sdk.ToolUnionParam, len(specs))
	for i, spec := range specs {
		tool := sdk.ToolParam{
			Name:        spec.Name,
			Description: sdk.String(spec.Description),
		}
		if props, ok := spec.Schema["properties"]; ok {
			tool.InputSchema = sdk.ToolInputSchemaParam{Properties: props}
		}
		tools[i] = sdk.ToolUnionParam{OfTool: &tool}
	}
	return tools
}
