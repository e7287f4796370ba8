// Package openai adapts OpenAI chat completions to model.ChatModel.
package openai

import (
	"context"
	"encoding/json"
	"errors"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/gaiaflow/gaiaflow/flow/model"
)

// DefaultModel is used when no model name is given.
const DefaultModel = "gpt-4o-mini"

// ChatModel implements model.ChatModel for OpenAI's API.
//
// Supports text chat and tool calling. The underlying SDK client is safe
// for concurrent use.
//
// Example:
//
//	m := openai.New(os.Getenv("OPENAI_API_KEY"), "gpt-4o-mini")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "What is the capital of France?"},
//	}, nil)
type ChatModel struct {
	client      *sdk.Client
	model       string
	temperature *float64
}

// Option configures a ChatModel. Nil options are ignored.
type Option func(*ChatModel)

// WithTemperature sets the sampling temperature. Unset leaves the
// provider default.
func WithTemperature(t float64) Option {
	return func(m *ChatModel) {
		m.temperature = &t
	}
}

// New creates an OpenAI-backed ChatModel.
//
// The API key comes from https://platform.openai.com/api-keys. An empty
// modelName selects DefaultModel.
func New(apiKey, modelName string, opts ...Option) *ChatModel {
	if modelName == "" {
		modelName = DefaultModel
	}

	client := sdk.NewClient(option.WithAPIKey(apiKey))
	m := &ChatModel{
		client: &client,
		model:  modelName,
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
// Failures are normalized to *model.ProviderError; rate limits, timeouts,
// and server errors are marked retryable.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: toMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = toTools(tools)
	}
	if m.temperature != nil {
		params.Temperature = sdk.Float(*m.temperature)
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, model.Classify("openai", err)
	}
	if len(completion.Choices) == 0 {
		return model.ChatOut{}, &model.ProviderError{
			Provider: "openai",
			Code:     "server",
			Message:  "no choices in response",
		}
	}

	msg := completion.Choices[0].Message
	out := model.ChatOut{
		Text: msg.Content,
		Usage: model.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}

	for _, tc := range msg.ToolCalls {
		call := model.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
		}
		if args := tc.Function.Arguments; args != "" {
			var input map[string]any
			if err := json.Unmarshal([]byte(args), &input); err != nil {
				return model.ChatOut{}, &model.ProviderError{
					Provider: "openai",
					Code:     "bad_request",
					Message:  "malformed tool call arguments: " + err.Error(),
				}
			}
			call.Input = input
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}

	if out.Text == "" && len(out.ToolCalls) == 0 {
		return model.ChatOut{}, errors.New("empty response from OpenAI API")
	}
	return out, nil
}

func toMessages(messages []model.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, sdk.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, sdk.AssistantMessage(msg.Content))
		default:
			// User input; tool outputs also travel as user text since
			// conversations here are plain role/content pairs.
			out = append(out, sdk.UserMessage(msg.Content))
		}
	}
	return out
}

func toTools(specs []model.ToolSpec) []sdk.ChatCompletionToolUnionParam {
	tools := make([]sdk.ChatCompletionToolUnionParam, len(specs))
	for i, spec := range specs {
		tools[i] = sdk.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: sdk.String(spec.Description),
			Parameters:  shared.FunctionParameters(spec.Schema),
		})
	}
	return tools
}
