package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gaiaflow/gaiaflow/flow"
	"github.com/gaiaflow/gaiaflow/flow/model"
	"github.com/gaiaflow/gaiaflow/flow/store"
	"github.com/gaiaflow/gaiaflow/flow/tool"
)

func newReActEngine(t *testing.T, llm model.ChatModel, reg *tool.Registry, maxIterations int) (*flow.Engine[State], store.Store[State]) {
	t.Helper()
	st := store.NewMemory[State]()
	eng, err := flow.New(Reduce, st, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := BuildReActGraph(eng, llm, reg, nil, maxIterations); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return eng, st
}

func TestReActGraph_FinalAnswerTool(t *testing.T) {
	llm := &model.Mock{
		Responses: []model.ChatOut{
			{Text: "I should search first.", ToolCalls: []model.ToolCall{
				{ID: "c1", Name: "web_search", Input: map[string]any{"query": "6 times 7"}},
			}},
			{ToolCalls: []model.ToolCall{
				{ID: "c2", Name: FinalAnswerTool, Input: map[string]any{"answer": "42"}},
			}},
		},
	}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"6 x 7 = 42"}}
	final := &tool.Mock{ToolName: FinalAnswerTool, Responses: []string{"42"}}
	eng, st := newReActEngine(t, llm, registryWith(t, search, final), 0)

	got, err := eng.Run(context.Background(), "run-react", State{Question: "What is 6 times 7?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.FinalAnswer != "42" {
		t.Errorf("expected final answer 42, got %q", got.FinalAnswer)
	}
	if got.CurrentStep != 2 {
		t.Errorf("expected 2 rounds, got %d", got.CurrentStep)
	}
	if got.Err != "" {
		t.Errorf("expected no soft failure, got %q", got.Err)
	}

	// The first round seeds the conversation.
	if len(llm.Calls[0].Messages) != 2 {
		t.Fatalf("expected system and user message, got %d", len(llm.Calls[0].Messages))
	}
	if llm.Calls[0].Messages[0].Role != model.RoleSystem {
		t.Errorf("expected system message first, got %s", llm.Calls[0].Messages[0].Role)
	}
	if !strings.Contains(llm.Calls[0].Messages[0].Content, "System time:") {
		t.Error("expected system time in system prompt")
	}
	if llm.Calls[0].Messages[1].Content != "What is 6 times 7?" {
		t.Errorf("unexpected user message: %q", llm.Calls[0].Messages[1].Content)
	}

	// The second round sees the assistant turn and the tool output.
	second := llm.Calls[1].Messages
	if len(second) != 4 {
		t.Fatalf("expected 4 messages in round 2, got %d", len(second))
	}
	if !hasMessage(second, model.RoleAssistant, "I should search first.") {
		t.Error("expected assistant turn in round 2")
	}
	if !hasMessage(second, model.RoleTool, "web_search returned: 6 x 7 = 42") {
		t.Error("expected tool output in round 2")
	}

	if final.CallCount() != 1 {
		t.Fatalf("expected 1 final_answer call, got %d", final.CallCount())
	}
	if final.Calls[0]["answer"] != "42" {
		t.Errorf("unexpected final_answer input: %v", final.Calls[0])
	}

	rec, err := st.LatestStep(context.Background(), "run-react")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Step != 2 || rec.NodeID != NodeReAct {
		t.Errorf("expected step 2 at %s, got step %d at %s", NodeReAct, rec.Step, rec.NodeID)
	}
}

func TestReActGraph_PlainTextAnswer(t *testing.T) {
	llm := &model.Mock{
		Responses: []model.ChatOut{{Text: "The final answer is Paris."}},
	}
	eng, _ := newReActEngine(t, llm, nil, 0)

	got, err := eng.Run(context.Background(), "run-plain", State{Question: "Capital of France?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FinalAnswer != "Paris" {
		t.Errorf("expected normalized answer Paris, got %q", got.FinalAnswer)
	}
	if got.CurrentStep != 1 {
		t.Errorf("expected 1 round, got %d", got.CurrentStep)
	}
}

func TestReActGraph_IterationCap(t *testing.T) {
	llm := &model.Mock{
		Responses: []model.ChatOut{
			{Text: "still searching", ToolCalls: []model.ToolCall{
				{Name: "web_search", Input: map[string]any{"query": "more"}},
			}},
		},
	}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"nothing useful"}}
	eng, _ := newReActEngine(t, llm, registryWith(t, search), 2)

	got, err := eng.Run(context.Background(), "run-cap", State{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Err != "reached iteration limit without a final answer" {
		t.Errorf("expected iteration limit failure, got %q", got.Err)
	}
	if got.CurrentStep != 2 {
		t.Errorf("expected 2 rounds, got %d", got.CurrentStep)
	}
	// The last assistant text stands in as a best-effort answer.
	if got.FinalAnswer != "still searching" {
		t.Errorf("unexpected final answer: %q", got.FinalAnswer)
	}
	if search.CallCount() != 2 {
		t.Errorf("expected 2 tool calls, got %d", search.CallCount())
	}
}

func TestReActGraph_ToolErrorFedBack(t *testing.T) {
	llm := &model.Mock{
		Responses: []model.ChatOut{
			{ToolCalls: []model.ToolCall{{Name: "web_search", Input: map[string]any{"query": "q"}}}},
			{Text: "FINAL ANSWER: unknown"},
		},
	}
	search := &tool.Mock{ToolName: "web_search", Err: errors.New("rate limited")}
	eng, _ := newReActEngine(t, llm, registryWith(t, search), 0)

	got, err := eng.Run(context.Background(), "run-toolerr", State{Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasMessage(llm.Calls[1].Messages, model.RoleTool, "Error: rate limited") {
		t.Error("expected tool error fed back to the model")
	}
	if got.FinalAnswer != "unknown" {
		t.Errorf("unexpected final answer: %q", got.FinalAnswer)
	}
}

func TestReActGraph_FinalAnswerToolError(t *testing.T) {
	llm := &model.Mock{
		Responses: []model.ChatOut{
			{ToolCalls: []model.ToolCall{{Name: FinalAnswerTool, Input: map[string]any{}}}},
		},
	}
	final := &tool.Mock{ToolName: FinalAnswerTool, Err: errors.New("answer parameter required")}
	eng, _ := newReActEngine(t, llm, registryWith(t, final), 0)

	_, err := eng.Run(context.Background(), "run-finalerr", State{Question: "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "answer parameter required") {
		t.Errorf("expected tool error surfaced, got %v", err)
	}
}

func TestReActGraph_Resume(t *testing.T) {
	llm := &model.Mock{
		Responses: []model.ChatOut{{Text: "FINAL ANSWER: resumed"}},
	}
	eng, st := newReActEngine(t, llm, nil, 0)

	seeded := []model.Message{
		{Role: model.RoleSystem, Content: "system prompt"},
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleAssistant, Content: "thinking"},
	}
	err := st.SaveStep(context.Background(), store.StepRecord[State]{
		RunID:   "run-react-resume",
		Step:    1,
		NodeID:  NodeReAct,
		State:   State{Question: "q", Messages: seeded, CurrentStep: 1},
		SavedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := eng.Resume(context.Background(), "run-react-resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FinalAnswer != "resumed" {
		t.Errorf("expected resumed answer, got %q", got.FinalAnswer)
	}
	if got.CurrentStep != 2 {
		t.Errorf("expected round counter to continue at 2, got %d", got.CurrentStep)
	}
	// The persisted conversation is reused, not re-seeded.
	if len(llm.Calls[0].Messages) != len(seeded) {
		t.Errorf("expected %d messages, got %d", len(seeded), len(llm.Calls[0].Messages))
	}
}
