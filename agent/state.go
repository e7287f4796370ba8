package agent

import "github.com/gaiaflow/gaiaflow/flow/model"

// State is the shared workflow state of a research run. Every field is
// JSON-serializable so the engine can deep-copy deltas and stores can
// persist each step.
type State struct {
	// Question is the user's original question.
	Question string `json:"question"`

	// Messages is the running LLM conversation.
	Messages []model.Message `json:"messages,omitempty"`

	// Plan is the execution plan produced by the planner.
	Plan string `json:"plan,omitempty"`

	// Results collects the outcome of each executor round.
	Results []StepResult `json:"results,omitempty"`

	// CurrentStep is the 1-based plan step the executor works on. In the
	// ReAct loop it counts reasoning rounds instead.
	CurrentStep int `json:"current_step,omitempty"`

	// Synthesis is the synthesizer's full answer text.
	Synthesis string `json:"synthesis,omitempty"`

	// FinalAnswer is the normalized answer (see FormatAnswer).
	FinalAnswer string `json:"final_answer,omitempty"`

	// NextAction is the verifier's most recent routing decision: one of
	// the research graph node IDs.
	NextAction string `json:"next_action,omitempty"`

	// Err records a soft failure that ended the run without an answer.
	Err string `json:"err,omitempty"`
}

// StepResult is the outcome of one executor round.
type StepResult struct {
	// Step is the plan step number the round worked on.
	Step int `json:"step"`

	// Output is the executor's report for the round.
	Output string `json:"output"`

	// ToolsUsed lists the tools dispatched during the round, in call
	// order.
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// Reduce merges a node delta into the accumulated state: scalar fields
// overwrite when the delta carries a non-zero value, Messages and Results
// append. It is the reducer every agent engine is built with.
func Reduce(prev, delta State) State {
	out := prev
	if delta.Question != "" {
		out.Question = delta.Question
	}
	if len(delta.Messages) > 0 {
		out.Messages = append(out.Messages, delta.Messages...)
	}
	if delta.Plan != "" {
		out.Plan = delta.Plan
	}
	if len(delta.Results) > 0 {
		out.Results = append(out.Results, delta.Results...)
	}
	if delta.CurrentStep != 0 {
		out.CurrentStep = delta.CurrentStep
	}
	if delta.Synthesis != "" {
		out.Synthesis = delta.Synthesis
	}
	if delta.FinalAnswer != "" {
		out.FinalAnswer = delta.FinalAnswer
	}
	if delta.NextAction != "" {
		out.NextAction = delta.NextAction
	}
	if delta.Err != "" {
		out.Err = delta.Err
	}
	return out
}
