package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// webPageLimit caps the extracted page text fed back to the model.
const webPageLimit = 8000

// elements whose text is navigation or machinery rather than content.
var pageSkip = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"template": true,
}

// WebPage fetches a URL and returns its clean text content: script,
// style, and navigation elements stripped, whitespace collapsed, length
// capped.
type WebPage struct {
	client *http.Client
}

// NewWebPage creates the web_page tool. A nil client selects a
// 30-second-timeout default.
func NewWebPage(client *http.Client) *WebPage {
	return &WebPage{client: orDefault(client)}
}

// Name implements tool.Tool.
func (w *WebPage) Name() string {
	return "web_page"
}

// Description implements tool.Tool.
func (w *WebPage) Description() string {
	return "Extract clean text content from a web page. Use this to read article content, descriptions, or general text information."
}

// Schema implements tool.Tool.
func (w *WebPage) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL of the page to read",
			},
		},
		"required": []string{"url"},
	}
}

// Run implements tool.Tool.
func (w *WebPage) Run(ctx context.Context, input map[string]any) (string, error) {
	rawURL, ok := tool.StringArg(input, "url")
	if !ok {
		return "", fmt.Errorf("url parameter required")
	}

	doc, err := fetchHTML(ctx, w.client, rawURL)
	if err != nil {
		return "", err
	}

	text := nodeText(doc, pageSkip)
	if text == "" {
		return fmt.Sprintf("No readable text found at %s.", rawURL), nil
	}
	return truncate(text, webPageLimit), nil
}
