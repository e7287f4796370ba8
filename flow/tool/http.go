package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBody caps how much of an HTTP response body is read.
const DefaultMaxBody = 1 << 20 // 1 MiB

// HTTP is a generic tool for making HTTP requests.
//
// It supports GET and POST and returns the status line plus a size-capped
// body. Useful for agents that call REST APIs or webhooks directly; for
// page reading prefer a purpose-built extraction tool that strips markup.
type HTTP struct {
	client  *http.Client
	maxBody int64
}

// NewHTTP creates an HTTP tool. A nil client gets a default with a
// 30-second timeout.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{
		client:  client,
		maxBody: DefaultMaxBody,
	}
}

// Name implements Tool.
func (h *HTTP) Name() string {
	return "http_request"
}

// Description implements Tool.
func (h *HTTP) Description() string {
	return "Make an HTTP GET or POST request and return the response body. " +
		"Use for REST APIs that return JSON or plain text."
}

// Schema implements Tool.
func (h *HTTP) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL (http or https)",
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method: GET or POST (default GET)",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body for POST, typically JSON",
			},
			"content_type": map[string]any{
				"type":        "string",
				"description": "Content-Type header for POST (default application/json)",
			},
		},
		"required": []string{"url"},
	}
}

// Run implements Tool.
func (h *HTTP) Run(ctx context.Context, input map[string]any) (string, error) {
	urlStr, ok := StringArg(input, "url")
	if !ok {
		return "", fmt.Errorf("url parameter required")
	}
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return "", fmt.Errorf("url must start with http:// or https://")
	}

	method := http.MethodGet
	if m, ok := StringArg(input, "method"); ok {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return "", fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if b, ok := StringArg(input, "body"); ok {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if method == http.MethodPost {
		contentType := "application/json"
		if ct, ok := StringArg(input, "content_type"); ok {
			contentType = ct
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, string(respBody)), nil
}
