package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const ddgFixture = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fsosa&amp;rut=abc">Mercedes Sosa - Wikipedia</a>
  <div class="result__snippet">Argentine singer known as La Negra.</div>
</div>
<div class="result">
  <a class="result__a" href="https://example.org/page">Second hit</a>
  <div class="result__snippet">Another snippet.</div>
</div>
</body></html>`

func TestWebSearch_DuckDuckGo(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(ddgFixture))
	}))
	defer ts.Close()

	ws := NewWebSearch(ts.Client())
	ws.ddgURL = ts.URL

	got, err := ws.Run(context.Background(), map[string]any{"query": "mercedes sosa"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "mercedes sosa" {
		t.Errorf("unexpected query: %q", gotQuery)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	// Redirect links are unwrapped to their target.
	if lines[0] != "1. Mercedes Sosa - Wikipedia - https://example.com/sosa" {
		t.Errorf("unexpected first result: %q", lines[0])
	}
	if lines[1] != "   Argentine singer known as La Negra." {
		t.Errorf("unexpected first snippet: %q", lines[1])
	}
	if lines[2] != "2. Second hit - https://example.org/page" {
		t.Errorf("unexpected second result: %q", lines[2])
	}
}

func TestWebSearch_MaxResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ddgFixture))
	}))
	defer ts.Close()

	ws := NewWebSearch(ts.Client(), WithMaxResults(1))
	ws.ddgURL = ts.URL

	got, err := ws.Run(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "2. ") {
		t.Errorf("expected a single result, got:\n%s", got)
	}
}

func TestWebSearch_NoResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no results markup</p></body></html>"))
	}))
	defer ts.Close()

	ws := NewWebSearch(ts.Client())
	ws.ddgURL = ts.URL

	got, err := ws.Run(context.Background(), map[string]any{"query": "zxqvbn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, `No results found for "zxqvbn"`) {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestWebSearch_Tavily(t *testing.T) {
	var gotAuth, gotContentType string
	var gotReq tavilyRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"results":[{"title":"Tavily hit","url":"https://t.example/page","content":"Fresh content."}]}`))
	}))
	defer ts.Close()

	ws := NewWebSearch(ts.Client(), WithTavilyKey("test-key"), WithMaxResults(3))
	ws.tavilyURL = ts.URL

	got, err := ws.Run(context.Background(), map[string]any{"query": "current events"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected authorization header: %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("unexpected content type: %q", gotContentType)
	}
	if gotReq.Query != "current events" || gotReq.MaxResults != 3 {
		t.Errorf("unexpected request payload: %+v", gotReq)
	}
	want := "1. Tavily hit - https://t.example/page\n   Fresh content."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestWebSearch_TavilyError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	ws := NewWebSearch(ts.Client(), WithTavilyKey("bad-key"))
	ws.tavilyURL = ts.URL

	_, err := ws.Run(context.Background(), map[string]any{"query": "q"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "HTTP 401") || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWebSearch_MissingQuery(t *testing.T) {
	ws := NewWebSearch(nil)
	if _, err := ws.Run(context.Background(), map[string]any{}); err == nil {
		t.Error("expected error for missing query")
	}
}

func TestCleanResultURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=abc", "https://example.com/page"},
		{"https://example.org/direct", "https://example.org/direct"},
		{"//example.net/schemeless", "https://example.net/schemeless"},
	}
	for _, tt := range tests {
		if got := cleanResultURL(tt.in); got != tt.want {
			t.Errorf("cleanResultURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
