package agent

import (
	"reflect"
	"testing"

	"github.com/gaiaflow/gaiaflow/flow/model"
)

func TestReduce(t *testing.T) {
	t.Run("zero delta preserves state", func(t *testing.T) {
		prev := State{
			Question:    "q",
			Plan:        "plan",
			CurrentStep: 2,
			NextAction:  NodeExecutor,
		}
		got := Reduce(prev, State{})
		if !reflect.DeepEqual(got, prev) {
			t.Errorf("expected state unchanged, got %+v", got)
		}
	})

	t.Run("scalars overwrite", func(t *testing.T) {
		prev := State{Plan: "old", CurrentStep: 1, NextAction: NodeExecutor}
		got := Reduce(prev, State{Plan: "new", CurrentStep: 3, NextAction: NodeSynthesizer})
		if got.Plan != "new" {
			t.Errorf("expected plan overwritten, got %q", got.Plan)
		}
		if got.CurrentStep != 3 {
			t.Errorf("expected step 3, got %d", got.CurrentStep)
		}
		if got.NextAction != NodeSynthesizer {
			t.Errorf("expected next action %q, got %q", NodeSynthesizer, got.NextAction)
		}
	})

	t.Run("messages append", func(t *testing.T) {
		prev := State{Messages: []model.Message{{Role: model.RoleUser, Content: "first"}}}
		got := Reduce(prev, State{Messages: []model.Message{{Role: model.RoleAssistant, Content: "second"}}})
		if len(got.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(got.Messages))
		}
		if got.Messages[1].Content != "second" {
			t.Errorf("expected appended message, got %q", got.Messages[1].Content)
		}
	})

	t.Run("results append", func(t *testing.T) {
		prev := State{Results: []StepResult{{Step: 1, Output: "a"}}}
		got := Reduce(prev, State{Results: []StepResult{{Step: 2, Output: "b"}}})
		if len(got.Results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(got.Results))
		}
		if got.Results[1].Step != 2 || got.Results[1].Output != "b" {
			t.Errorf("unexpected appended result: %+v", got.Results[1])
		}
	})

	t.Run("answer fields", func(t *testing.T) {
		got := Reduce(State{}, State{Synthesis: "full text", FinalAnswer: "42", Err: "soft failure"})
		if got.Synthesis != "full text" {
			t.Errorf("expected synthesis set, got %q", got.Synthesis)
		}
		if got.FinalAnswer != "42" {
			t.Errorf("expected final answer set, got %q", got.FinalAnswer)
		}
		if got.Err != "soft failure" {
			t.Errorf("expected err set, got %q", got.Err)
		}
	})
}
