package tool

import (
	"context"
	"errors"
	"testing"
)

func TestMock_Run(t *testing.T) {
	t.Run("returns responses in sequence then repeats last", func(t *testing.T) {
		mock := &Mock{
			ToolName:  "web_search",
			Responses: []string{"first", "second"},
		}

		for _, want := range []string{"first", "second", "second"} {
			out, err := mock.Run(context.Background(), map[string]any{"query": "x"})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if out != want {
				t.Errorf("expected %q, got %q", want, out)
			}
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		boom := errors.New("boom")
		mock := &Mock{ToolName: "web_search", Err: boom}

		_, err := mock.Run(context.Background(), nil)
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if mock.CallCount() != 1 {
			t.Errorf("expected failed call recorded, got %d", mock.CallCount())
		}
	})

	t.Run("records inputs", func(t *testing.T) {
		mock := &Mock{ToolName: "calculator", Responses: []string{"42"}}

		_, _ = mock.Run(context.Background(), map[string]any{"expression": "6*7"})

		if len(mock.Calls) != 1 || mock.Calls[0]["expression"] != "6*7" {
			t.Errorf("input not recorded: %v", mock.Calls)
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		mock := &Mock{ToolName: "web_search", Responses: []string{"never"}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := mock.Run(ctx, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMock_Reset(t *testing.T) {
	mock := &Mock{ToolName: "t", Responses: []string{"a", "b"}}

	_, _ = mock.Run(context.Background(), nil)
	_, _ = mock.Run(context.Background(), nil)
	mock.Reset()

	if mock.CallCount() != 0 {
		t.Errorf("expected cleared calls, got %d", mock.CallCount())
	}
	out, _ := mock.Run(context.Background(), nil)
	if out != "a" {
		t.Errorf("expected sequence restarted, got %q", out)
	}
}

func TestMock_InterfaceCompliance(_ *testing.T) {
	var _ Tool = (*Mock)(nil)
}
