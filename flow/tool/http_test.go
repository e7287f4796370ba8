package tool

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTP_Name(t *testing.T) {
	h := NewHTTP(nil)
	if h.Name() != "http_request" {
		t.Errorf("Name() = %q, want http_request", h.Name())
	}
}

func TestHTTP_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	h := NewHTTP(server.Client())
	out, err := h.Run(context.Background(), map[string]any{"url": server.URL})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.HasPrefix(out, "HTTP 200\n") {
		t.Errorf("expected status line prefix, got %q", out)
	}
	if !strings.Contains(out, `{"status":"ok"}`) {
		t.Errorf("expected body in output, got %q", out)
	}
}

func TestHTTP_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"test"}` {
			t.Errorf("unexpected request body: %s", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "created")
	}))
	defer server.Close()

	h := NewHTTP(server.Client())
	out, err := h.Run(context.Background(), map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   `{"name":"test"}`,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP 201\n") {
		t.Errorf("expected 201 status line, got %q", out)
	}
	if !strings.Contains(out, "created") {
		t.Errorf("expected response body, got %q", out)
	}
}

func TestHTTP_PostCustomContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("expected text/plain, got %q", ct)
		}
	}))
	defer server.Close()

	h := NewHTTP(server.Client())
	_, err := h.Run(context.Background(), map[string]any{
		"url":          server.URL,
		"method":       "POST",
		"body":         "hello",
		"content_type": "text/plain",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestHTTP_InvalidInput(t *testing.T) {
	h := NewHTTP(nil)
	ctx := context.Background()

	t.Run("missing url", func(t *testing.T) {
		if _, err := h.Run(ctx, map[string]any{}); err == nil {
			t.Error("expected error for missing url")
		}
	})

	t.Run("non-http scheme", func(t *testing.T) {
		if _, err := h.Run(ctx, map[string]any{"url": "ftp://example.com"}); err == nil {
			t.Error("expected error for ftp scheme")
		}
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := h.Run(ctx, map[string]any{"url": "http://example.com", "method": "DELETE"})
		if err == nil {
			t.Fatal("expected error for DELETE")
		}
		if !strings.Contains(err.Error(), "DELETE") {
			t.Errorf("expected method named in error, got %v", err)
		}
	})
}

func TestHTTP_BodyCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	h := NewHTTP(server.Client())
	h.maxBody = 100

	out, err := h.Run(context.Background(), map[string]any{"url": server.URL})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	body := strings.TrimPrefix(out, "HTTP 200\n")
	if len(body) != 100 {
		t.Errorf("expected body capped at 100 bytes, got %d", len(body))
	}
}

func TestHTTP_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	h := NewHTTP(server.Client())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Run(ctx, map[string]any{"url": server.URL}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHTTP_Schema(t *testing.T) {
	h := NewHTTP(nil)
	schema := h.Schema()

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", schema["properties"])
	}
	for _, key := range []string{"url", "method", "body", "content_type"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing property %s", key)
		}
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "url" {
		t.Errorf("expected required [url], got %v", schema["required"])
	}
}

func TestHTTP_InterfaceCompliance(_ *testing.T) {
	var _ Tool = (*HTTP)(nil)
}
