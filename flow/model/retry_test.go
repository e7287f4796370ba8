package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// flakyModel fails with err until failures runs out, then succeeds.
type flakyModel struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (f *flakyModel) Name() string { return "flaky" }

func (f *flakyModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return ChatOut{}, f.err
	}
	return ChatOut{Text: "recovered"}, nil
}

func TestRetrying_RecoverFromTransientErrors(t *testing.T) {
	inner := &flakyModel{
		failures: 2,
		err:      &ProviderError{Provider: "openai", Code: "rate_limited", Message: "slow down", Retryable: true},
	}
	m := NewRetrying(inner, 3, time.Millisecond)

	out, err := m.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if out.Text != "recovered" {
		t.Errorf("expected 'recovered', got %q", out.Text)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetrying_ExhaustsAttempts(t *testing.T) {
	inner := &flakyModel{
		failures: 10,
		err:      &ProviderError{Provider: "openai", Code: "server", Message: "502", Retryable: true},
	}
	m := NewRetrying(inner, 3, time.Millisecond)

	_, err := m.Chat(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected attempt count in error, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Errorf("expected wrapped ProviderError, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestRetrying_PermanentErrorFailsFast(t *testing.T) {
	inner := &flakyModel{
		failures: 10,
		err:      &ProviderError{Provider: "openai", Code: "auth", Message: "bad key", Retryable: false},
	}
	m := NewRetrying(inner, 3, time.Millisecond)

	_, err := m.Chat(context.Background(), nil, nil)
	if !errors.Is(err, inner.err) {
		t.Fatalf("expected the auth error unwrapped, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected a single attempt, got %d", inner.calls)
	}
}

func TestRetrying_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &flakyModel{
		failures: 10,
		err:      &ProviderError{Provider: "openai", Code: "rate_limited", Retryable: true},
	}
	m := NewRetrying(inner, 5, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := m.Chat(ctx, nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation should interrupt backoff, waited %v", elapsed)
	}
}

func TestRetrying_ClampsConfiguration(t *testing.T) {
	inner := &flakyModel{
		failures: 10,
		err:      &ProviderError{Code: "server", Retryable: true},
	}
	m := NewRetrying(inner, 0, -time.Second)

	_, err := m.Chat(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("maxAttempts below 1 must clamp to 1, got %d attempts", inner.calls)
	}
}

func TestRetrying_Name(t *testing.T) {
	m := NewRetrying(&Mock{ModelName: "gpt-4o-mini"}, 2, time.Millisecond)
	if got := m.Name(); got != "gpt-4o-mini" {
		t.Errorf("expected delegated name, got %q", got)
	}
}

func TestRetrying_InterfaceCompliance(_ *testing.T) {
	var _ ChatModel = (*Retrying)(nil)
}
