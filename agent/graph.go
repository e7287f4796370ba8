package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/gaiaflow/gaiaflow/agent/prompts"
	"github.com/gaiaflow/gaiaflow/flow"
	"github.com/gaiaflow/gaiaflow/flow/model"
	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// Node IDs of the research graph. The verifier's routing decision is
// expressed with the same strings, so a decision names the node that
// runs next.
const (
	NodePlanner     = "planner"
	NodeExecutor    = "executor"
	NodeVerifier    = "verifier"
	NodeSynthesizer = "synthesizer"
)

// FinalAnswerTool is the name of the terminal tool the ReAct agent must
// call to deliver its answer.
const FinalAnswerTool = "final_answer"

// DefaultToolRounds bounds the executor's model/tool rounds per plan step.
const DefaultToolRounds = 4

// BuildResearchGraph assembles the plan/execute/verify/synthesize workflow
// on eng:
//
//	planner → executor → verifier → {synthesizer | planner | executor}
//	synthesizer → END
//
// The verifier's decision is carried in State.NextAction and routed through
// conditional edges; executor is the fallback when the decision names
// neither synthesizer nor planner. toolRounds <= 0 selects
// DefaultToolRounds.
func BuildResearchGraph(eng *flow.Engine[State], llm model.ChatModel, tools *tool.Registry, costs *flow.CostTracker, toolRounds int) error {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	if toolRounds <= 0 {
		toolRounds = DefaultToolRounds
	}

	nodes := map[string]flow.NodeFunc[State]{
		NodePlanner:     plannerNode(llm, costs),
		NodeExecutor:    executorNode(llm, tools, costs, toolRounds),
		NodeVerifier:    verifierNode(llm, costs),
		NodeSynthesizer: synthesizerNode(llm, costs),
	}
	for _, id := range []string{NodePlanner, NodeExecutor, NodeVerifier, NodeSynthesizer} {
		if err := eng.Add(id, nodes[id]); err != nil {
			return err
		}
	}
	if err := eng.SetEntry(NodePlanner); err != nil {
		return err
	}

	if err := eng.Connect(NodePlanner, NodeExecutor, nil); err != nil {
		return err
	}
	if err := eng.Connect(NodeExecutor, NodeVerifier, nil); err != nil {
		return err
	}
	if err := eng.Connect(NodeVerifier, NodeSynthesizer, func(s State) bool {
		return s.NextAction == NodeSynthesizer
	}); err != nil {
		return err
	}
	if err := eng.Connect(NodeVerifier, NodePlanner, func(s State) bool {
		return s.NextAction == NodePlanner
	}); err != nil {
		return err
	}
	return eng.Connect(NodeVerifier, NodeExecutor, nil)
}

// plannerNode asks the model for a numbered execution plan and resets the
// step counter.
func plannerNode(llm model.ChatModel, costs *flow.CostTracker) flow.NodeFunc[State] {
	return func(ctx context.Context, s State) flow.Result[State] {
		prompt, err := prompts.Render(prompts.Planner, map[string]string{
			"question": s.Question,
		})
		if err != nil {
			return flow.Result[State]{Err: err}
		}

		out, err := llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, nil)
		if err != nil {
			return flow.Result[State]{Err: err}
		}
		costs.Record(llm.Name(), out.Usage.InputTokens, out.Usage.OutputTokens)

		return flow.Result[State]{
			Delta: State{Plan: out.Text, CurrentStep: 1},
		}
	}
}

// executorNode works the current plan step through a bounded model/tool
// loop: the model may call registry tools, tool outputs are fed back as
// tool messages, and the round ends when the model answers in plain text
// or the round budget runs out.
func executorNode(llm model.ChatModel, tools *tool.Registry, costs *flow.CostTracker, toolRounds int) flow.NodeFunc[State] {
	return func(ctx context.Context, s State) flow.Result[State] {
		step := s.CurrentStep
		if step == 0 {
			step = 1
		}

		prompt, err := prompts.Render(prompts.Executor, map[string]string{
			"plan":             s.Plan,
			"previous_results": formatResults(s.Results),
			"current_step":     fmt.Sprintf("Step %d", step),
		})
		if err != nil {
			return flow.Result[State]{Err: err}
		}

		msgs := []model.Message{{Role: model.RoleUser, Content: prompt}}
		var (
			out        model.ChatOut
			toolsUsed  []string
			transcript []string
		)

		for round := 0; round < toolRounds; round++ {
			out, err = llm.Chat(ctx, msgs, tools.Specs())
			if err != nil {
				return flow.Result[State]{Err: err}
			}
			costs.Record(llm.Name(), out.Usage.InputTokens, out.Usage.OutputTokens)

			if len(out.ToolCalls) == 0 {
				break
			}
			if out.Text != "" {
				msgs = append(msgs, model.Message{Role: model.RoleAssistant, Content: out.Text})
			}

			var dispatchErr error
			var failed model.ToolCall
			for _, call := range out.ToolCalls {
				toolsUsed = append(toolsUsed, call.Name)
				result, derr := tools.Dispatch(ctx, call)
				if derr != nil {
					if dispatchErr == nil {
						dispatchErr = derr
						failed = call
					}
					msgs = append(msgs, model.Message{
						Role:    model.RoleTool,
						Content: call.Name + " failed: " + derr.Error(),
					})
					continue
				}
				transcript = append(transcript, result)
				msgs = append(msgs, model.Message{
					Role:    model.RoleTool,
					Content: call.Name + " returned: " + result,
				})
			}

			if dispatchErr != nil {
				recovery, rerr := prompts.Render(prompts.ErrorRecovery, map[string]string{
					"error":         dispatchErr.Error(),
					"error_details": fmt.Sprintf("tool %s, input %v", failed.Name, failed.Input),
				})
				if rerr == nil {
					msgs = append(msgs, model.Message{Role: model.RoleUser, Content: recovery})
				}
			}
		}

		report := out.Text
		if report == "" {
			// Round budget ran out mid tool loop; keep the raw tool
			// outputs so the verifier and synthesizer still see them.
			report = strings.Join(transcript, "\n")
		}
		if report != "" {
			msgs = append(msgs, model.Message{Role: model.RoleAssistant, Content: report})
		}

		return flow.Result[State]{
			Delta: State{
				Messages: msgs[1:],
				Results:  []StepResult{{Step: step, Output: report, ToolsUsed: toolsUsed}},
			},
		}
	}
}

// verifierNode evaluates progress and records the next action. The actual
// hop is taken by the conditional edges declared in BuildResearchGraph.
// Routing back to the executor advances the step counter.
func verifierNode(llm model.ChatModel, costs *flow.CostTracker) flow.NodeFunc[State] {
	return func(ctx context.Context, s State) flow.Result[State] {
		prompt, err := prompts.Render(prompts.Verifier, map[string]string{
			"plan":         s.Plan,
			"results":      formatResults(s.Results),
			"current_step": fmt.Sprintf("Step %d", s.CurrentStep),
		})
		if err != nil {
			return flow.Result[State]{Err: err}
		}

		out, err := llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, nil)
		if err != nil {
			return flow.Result[State]{Err: err}
		}
		costs.Record(llm.Name(), out.Usage.InputTokens, out.Usage.OutputTokens)

		decision := ParseDecision(out.Text)
		delta := State{
			NextAction: decision,
			Messages:   []model.Message{{Role: model.RoleAssistant, Content: out.Text}},
		}
		if decision == NodeExecutor {
			delta.CurrentStep = s.CurrentStep + 1
		}
		return flow.Result[State]{Delta: delta}
	}
}

// synthesizerNode compiles the collected results into the final answer
// and ends the run.
func synthesizerNode(llm model.ChatModel, costs *flow.CostTracker) flow.NodeFunc[State] {
	return func(ctx context.Context, s State) flow.Result[State] {
		prompt, err := prompts.Render(prompts.Synthesizer, map[string]string{
			"question":          s.Question,
			"execution_results": formatResults(s.Results),
		})
		if err != nil {
			return flow.Result[State]{Err: err}
		}

		out, err := llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}}, nil)
		if err != nil {
			return flow.Result[State]{Err: err}
		}
		costs.Record(llm.Name(), out.Usage.InputTokens, out.Usage.OutputTokens)

		return flow.Result[State]{
			Delta: State{
				Synthesis:   out.Text,
				FinalAnswer: FormatAnswer(out.Text),
			},
			Route: flow.End(),
		}
	}
}

// ParseDecision maps verifier output to the node that should run next.
// Matching is a case-insensitive substring check with priority
// synthesizer > planner > executor; executor is the default when the text
// names no option.
func ParseDecision(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(lower, NodeSynthesizer):
		return NodeSynthesizer
	case strings.Contains(lower, NodePlanner):
		return NodePlanner
	default:
		return NodeExecutor
	}
}

// formatResults renders collected step results for inclusion in a prompt.
func formatResults(results []StepResult) string {
	if len(results) == 0 {
		return "none"
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "Step %d", r.Step)
		if len(r.ToolsUsed) > 0 {
			fmt.Fprintf(&b, " (tools: %s)", strings.Join(r.ToolsUsed, ", "))
		}
		b.WriteString(":\n")
		b.WriteString(r.Output)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
