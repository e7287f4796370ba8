package agent

import (
	"context"
	"time"

	"github.com/gaiaflow/gaiaflow/agent/prompts"
	"github.com/gaiaflow/gaiaflow/flow"
	"github.com/gaiaflow/gaiaflow/flow/model"
	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// NodeReAct is the single node of the ReAct graph.
const NodeReAct = "react"

// DefaultReActIterations caps the reasoning rounds of the ReAct loop.
const DefaultReActIterations = 15

// BuildReActGraph assembles the single-node ReAct loop on eng. Each engine
// step is one reasoning round: the model sees the full conversation plus
// the tool specs, its tool calls are dispatched, and the loop repeats via
// a self-edge until the model calls final_answer, answers in plain text,
// or the iteration cap is hit. maxIterations <= 0 selects
// DefaultReActIterations.
func BuildReActGraph(eng *flow.Engine[State], llm model.ChatModel, tools *tool.Registry, costs *flow.CostTracker, maxIterations int) error {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	if maxIterations <= 0 {
		maxIterations = DefaultReActIterations
	}

	if err := eng.Add(NodeReAct, reactNode(llm, tools, costs, maxIterations)); err != nil {
		return err
	}
	if err := eng.SetEntry(NodeReAct); err != nil {
		return err
	}
	// Self-edge keeps the loop going whenever the node defers routing;
	// it also gives Resume a successor to continue from.
	return eng.Connect(NodeReAct, NodeReAct, nil)
}

// reactNode runs one reasoning round. The first round seeds the
// conversation with the system prompt and the question; later rounds
// reuse the conversation accumulated in State.Messages.
func reactNode(llm model.ChatModel, tools *tool.Registry, costs *flow.CostTracker, maxIterations int) flow.NodeFunc[State] {
	return func(ctx context.Context, s State) flow.Result[State] {
		round := s.CurrentStep + 1
		delta := State{CurrentStep: round}

		history := s.Messages
		if len(history) == 0 {
			system, err := prompts.Render(prompts.AgentSystem, map[string]string{
				"system_time": time.Now().UTC().Format(time.RFC3339),
			})
			if err != nil {
				return flow.Result[State]{Err: err}
			}
			delta.Messages = append(delta.Messages,
				model.Message{Role: model.RoleSystem, Content: system},
				model.Message{Role: model.RoleUser, Content: s.Question},
			)
			history = delta.Messages
		}

		out, err := llm.Chat(ctx, history, tools.Specs())
		if err != nil {
			return flow.Result[State]{Err: err}
		}
		costs.Record(llm.Name(), out.Usage.InputTokens, out.Usage.OutputTokens)

		if out.Text != "" {
			delta.Messages = append(delta.Messages, model.Message{
				Role: model.RoleAssistant, Content: out.Text,
			})
		}

		// final_answer ends the loop; calls after it are not honored.
		for _, call := range out.ToolCalls {
			if call.Name != FinalAnswerTool {
				continue
			}
			answer, derr := tools.Dispatch(ctx, call)
			if derr != nil {
				return flow.Result[State]{Err: derr}
			}
			delta.FinalAnswer = answer
			delta.Messages = append(delta.Messages, model.Message{
				Role: model.RoleTool, Content: FinalAnswerTool + " returned: " + answer,
			})
			return flow.Result[State]{Delta: delta, Route: flow.End()}
		}

		if len(out.ToolCalls) == 0 {
			// Plain-text answer without the final_answer tool.
			delta.FinalAnswer = FormatAnswer(out.Text)
			return flow.Result[State]{Delta: delta, Route: flow.End()}
		}

		for _, call := range out.ToolCalls {
			result, derr := tools.Dispatch(ctx, call)
			if derr != nil {
				result = "Error: " + derr.Error()
			}
			delta.Messages = append(delta.Messages, model.Message{
				Role: model.RoleTool, Content: call.Name + " returned: " + result,
			})
		}

		if round >= maxIterations {
			delta.Err = "reached iteration limit without a final answer"
			if out.Text != "" {
				delta.FinalAnswer = FormatAnswer(out.Text)
			}
			return flow.Result[State]{Delta: delta, Route: flow.End()}
		}

		// Zero route: the self-edge continues the loop.
		return flow.Result[State]{Delta: delta}
	}
}
