package tools

import (
	"context"
	"fmt"

	"github.com/gaiaflow/gaiaflow/agent"
	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// FinalAnswer is the terminal tool: the agent calls it to deliver its
// answer, and the candidate is normalized to the strict answer format by
// agent.FormatAnswer (plain numbers, no articles, comma-separated lists).
type FinalAnswer struct{}

// NewFinalAnswer creates the final_answer tool.
func NewFinalAnswer() *FinalAnswer {
	return &FinalAnswer{}
}

// Name implements tool.Tool.
func (f *FinalAnswer) Name() string {
	return agent.FinalAnswerTool
}

// Description implements tool.Tool.
func (f *FinalAnswer) Description() string {
	return "Provide the final answer to the original question. Always use this tool to deliver your answer. " +
		"The answer should be a number, as few words as possible, or a comma separated list of numbers and/or strings."
}

// Schema implements tool.Tool.
func (f *FinalAnswer) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "The answer value, as concise as possible",
			},
		},
		"required": []string{"answer"},
	}
}

// Run implements tool.Tool.
func (f *FinalAnswer) Run(ctx context.Context, input map[string]any) (string, error) {
	answer, ok := tool.StringArg(input, "answer")
	if !ok {
		return "", fmt.Errorf("answer parameter required")
	}
	return agent.FormatAnswer(answer), nil
}
