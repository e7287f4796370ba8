package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gaiaflow/gaiaflow/flow"
	"github.com/gaiaflow/gaiaflow/flow/emit"
	"github.com/gaiaflow/gaiaflow/flow/model"
	"github.com/gaiaflow/gaiaflow/flow/store"
	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// researchScript is one full pass through the research graph: plan, one
// executor round with a search call, hand-off, synthesis.
func researchScript() []model.ChatOut {
	return []model.ChatOut{
		textOut("1. web_search - count the albums"),
		callOut("web_search", map[string]any{"query": "albums"}),
		textOut("There are 3 albums."),
		textOut("synthesizer"),
		textOut("FINAL ANSWER: 3"),
	}
}

func TestNewRunner_Validation(t *testing.T) {
	llm := &model.Mock{}
	st := store.NewMemory[State]()

	t.Run("nil model", func(t *testing.T) {
		if _, err := NewRunner(nil, st); err == nil {
			t.Error("expected error for nil model")
		}
	})

	t.Run("nil store", func(t *testing.T) {
		if _, err := NewRunner(llm, nil); err == nil {
			t.Error("expected error for nil store")
		}
	})

	t.Run("invalid option", func(t *testing.T) {
		if _, err := NewRunner(llm, st, WithMaxSteps(0)); err == nil {
			t.Error("expected error for zero max steps")
		}
	})

	t.Run("nil tools rejected", func(t *testing.T) {
		if _, err := NewRunner(llm, st, WithTools(nil)); err == nil {
			t.Error("expected error for nil tools")
		}
	})

	t.Run("nil option ignored", func(t *testing.T) {
		if _, err := NewRunner(llm, st, nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("negative timeout rejected", func(t *testing.T) {
		if _, err := NewRunner(llm, st, WithNodeTimeout(-time.Second)); err == nil {
			t.Error("expected error for negative timeout")
		}
	})
}

func TestRunner_Ask(t *testing.T) {
	llm := &model.Mock{ModelName: "gpt-4o-mini", Responses: researchScript()}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"three albums"}}
	buf := emit.NewBufferedEmitter(32)

	runner, err := NewRunner(llm, store.NewMemory[State](),
		WithTools(registryWith(t, search)),
		WithEmitter(buf),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ans, err := runner.Ask(context.Background(), "How many albums?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ans.RunID == "" {
		t.Error("expected generated run ID")
	}
	if ans.Text != "3" {
		t.Errorf("expected answer 3, got %q", ans.Text)
	}
	if ans.Synthesis != "FINAL ANSWER: 3" {
		t.Errorf("unexpected synthesis: %q", ans.Synthesis)
	}
	if ans.Err != "" {
		t.Errorf("expected no soft failure, got %q", ans.Err)
	}
	if ans.Steps != 4 {
		t.Errorf("expected 4 steps, got %d", ans.Steps)
	}
	if ans.Cost <= 0 {
		t.Errorf("expected positive cost, got %v", ans.Cost)
	}
	if got := runner.Costs().Total(); got != ans.Cost {
		t.Errorf("expected tracker total %v, got %v", ans.Cost, got)
	}

	events := buf.Flush()
	var done int
	for _, ev := range events {
		if ev.Msg == "node_done" {
			done++
		}
	}
	if done != 4 {
		t.Errorf("expected 4 node_done events, got %d (%d total)", done, len(events))
	}
}

func TestRunner_Run(t *testing.T) {
	st := store.NewMemory[State]()
	llm := &model.Mock{Responses: researchScript()}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"three albums"}}

	runner, err := NewRunner(llm, st, WithTools(registryWith(t, search)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("empty question", func(t *testing.T) {
		if _, err := runner.Run(context.Background(), "run-1", "   "); err == nil {
			t.Error("expected error for blank question")
		}
	})

	t.Run("caller-chosen run ID", func(t *testing.T) {
		ans, err := runner.Run(context.Background(), "run-albums", "How many albums?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ans.RunID != "run-albums" {
			t.Errorf("expected run ID preserved, got %q", ans.RunID)
		}
		rec, err := st.LatestStep(context.Background(), "run-albums")
		if err != nil {
			t.Fatalf("expected persisted steps: %v", err)
		}
		if rec.State.FinalAnswer != "3" {
			t.Errorf("expected persisted answer, got %q", rec.State.FinalAnswer)
		}
	})
}

func TestRunner_Resume(t *testing.T) {
	st := store.NewMemory[State]()
	err := st.SaveStep(context.Background(), store.StepRecord[State]{
		RunID:   "run-resume",
		Step:    1,
		NodeID:  NodePlanner,
		State:   State{Question: "q", Plan: "1. do it", CurrentStep: 1},
		SavedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	llm := &model.Mock{Responses: []model.ChatOut{
		textOut("did it"),
		textOut("synthesizer"),
		textOut("FINAL ANSWER: done"),
	}}
	runner, err := NewRunner(llm, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ans, err := runner.Resume(context.Background(), "run-resume")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "done" {
		t.Errorf("expected answer done, got %q", ans.Text)
	}
	if ans.Steps != 4 {
		t.Errorf("expected 4 steps, got %d", ans.Steps)
	}
}

func TestRunner_Resume_UnknownRun(t *testing.T) {
	llm := &model.Mock{}
	runner, err := NewRunner(llm, store.NewMemory[State]())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := runner.Resume(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestRunner_ReAct(t *testing.T) {
	llm := &model.Mock{Responses: []model.ChatOut{
		{Text: "searching", ToolCalls: []model.ToolCall{
			{Name: "web_search", Input: map[string]any{"query": "q"}},
		}},
		{ToolCalls: []model.ToolCall{
			{Name: FinalAnswerTool, Input: map[string]any{"answer": "42"}},
		}},
	}}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"found it"}}
	final := &tool.Mock{ToolName: FinalAnswerTool, Responses: []string{"42"}}
	st := store.NewMemory[State]()

	runner, err := NewRunner(llm, st,
		WithTools(registryWith(t, search, final)),
		WithReAct(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ans, err := runner.Ask(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "42" {
		t.Errorf("expected answer 42, got %q", ans.Text)
	}
	if ans.Steps != 2 {
		t.Errorf("expected 2 steps, got %d", ans.Steps)
	}
	if ans.Synthesis != "" {
		t.Errorf("the ReAct loop has no synthesis, got %q", ans.Synthesis)
	}

	rec, err := st.LatestStep(context.Background(), ans.RunID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.NodeID != NodeReAct {
		t.Errorf("expected %s node, got %s", NodeReAct, rec.NodeID)
	}
	if len(rec.State.Messages) == 0 || rec.State.Messages[0].Role != model.RoleSystem {
		t.Error("expected persisted conversation to open with the system prompt")
	}
}

func TestRunner_ReAct_IterationCap(t *testing.T) {
	llm := &model.Mock{Responses: []model.ChatOut{
		{Text: "still at it", ToolCalls: []model.ToolCall{
			{Name: "web_search", Input: map[string]any{"query": "q"}},
		}},
	}}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"noise"}}

	runner, err := NewRunner(llm, store.NewMemory[State](),
		WithTools(registryWith(t, search)),
		WithReAct(),
		WithMaxIterations(3),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ans, err := runner.Ask(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(ans.Err, "iteration limit") {
		t.Errorf("expected iteration limit failure, got %q", ans.Err)
	}
	if ans.Steps != 3 {
		t.Errorf("expected 3 steps, got %d", ans.Steps)
	}
	if search.CallCount() != 3 {
		t.Errorf("expected 3 tool calls, got %d", search.CallCount())
	}
}

func TestRunner_CostAccumulatesAcrossRuns(t *testing.T) {
	script := researchScript()
	llm := &model.Mock{
		ModelName: "gpt-4o-mini",
		Responses: append(researchScript(), script...),
	}
	search := &tool.Mock{ToolName: "web_search", Responses: []string{"three albums"}}
	costs := flow.NewCostTracker()

	runner, err := NewRunner(llm, store.NewMemory[State](),
		WithTools(registryWith(t, search)),
		WithCostTracker(costs),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := runner.Ask(context.Background(), "How many albums?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := runner.Ask(context.Background(), "How many albums?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Cost <= 0 || second.Cost <= 0 {
		t.Fatalf("expected positive per-run costs, got %v and %v", first.Cost, second.Cost)
	}
	// The tracker keeps the running total; each answer reports only its
	// own run.
	total := costs.Total()
	if total <= first.Cost {
		t.Errorf("expected total above the first run's cost, got %v", total)
	}
	if diff := total - (first.Cost + second.Cost); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected per-run costs to sum to the total, off by %v", diff)
	}
}
