package tools

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// extractLimit caps the structured-data output fed back to the model.
const extractLimit = 6000

// ExtractStructured pulls tables and lists out of a web page in a
// readable plain-text form: table rows joined with " | ", list items as
// "- item" lines.
type ExtractStructured struct {
	client *http.Client
}

// NewExtractStructured creates the extract_structured tool. A nil client
// selects a 30-second-timeout default.
func NewExtractStructured(client *http.Client) *ExtractStructured {
	return &ExtractStructured{client: orDefault(client)}
}

// Name implements tool.Tool.
func (e *ExtractStructured) Name() string {
	return "extract_structured"
}

// Description implements tool.Tool.
func (e *ExtractStructured) Description() string {
	return "Extract structured data like tables and lists from a web page. Use this when you need specific data in tabular or list format."
}

// Schema implements tool.Tool.
func (e *ExtractStructured) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL of the page to extract structured data from",
			},
			"focus": map[string]any{
				"type":        "string",
				"description": "Optional: \"tables\" or \"lists\" to extract only that kind of data",
			},
		},
		"required": []string{"url"},
	}
}

// Run implements tool.Tool.
func (e *ExtractStructured) Run(ctx context.Context, input map[string]any) (string, error) {
	rawURL, ok := tool.StringArg(input, "url")
	if !ok {
		return "", fmt.Errorf("url parameter required")
	}
	focus, _ := input["focus"].(string)
	switch focus {
	case "", "tables", "lists":
	default:
		return "", fmt.Errorf("focus must be \"tables\" or \"lists\", got %q", focus)
	}

	doc, err := fetchHTML(ctx, e.client, rawURL)
	if err != nil {
		return "", err
	}

	var sections []string
	if focus != "lists" {
		sections = append(sections, extractTables(doc)...)
	}
	if focus != "tables" {
		sections = append(sections, extractLists(doc)...)
	}

	out := strings.TrimSpace(strings.Join(sections, "\n"))
	if out == "" {
		return "No structured data (tables or lists) found on this page.", nil
	}
	return truncate(out, extractLimit), nil
}

// extractTables renders each table as a "Table N:" header followed by one
// line per row with cells joined by " | ".
func extractTables(doc *html.Node) []string {
	var sections []string
	for i, table := range findAll(doc, "table") {
		var lines []string
		lines = append(lines, fmt.Sprintf("Table %d:", i+1))
		for _, row := range findAll(table, "tr") {
			var cells []string
			for child := row.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == html.ElementNode && (child.Data == "td" || child.Data == "th") {
					cells = append(cells, nodeText(child, nil))
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		if len(lines) > 1 {
			sections = append(sections, strings.Join(lines, "\n")+"\n")
		}
	}
	return sections
}

// extractLists renders each ul/ol as a typed header followed by "- item"
// lines.
func extractLists(doc *html.Node) []string {
	var sections []string
	ordinal := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol") {
			ordinal++
			kind := "Unordered List"
			if n.Data == "ol" {
				kind = "Ordered List"
			}
			var lines []string
			lines = append(lines, fmt.Sprintf("%s %d:", kind, ordinal))
			for _, item := range findAll(n, "li") {
				if text := nodeText(item, nil); text != "" {
					lines = append(lines, "- "+text)
				}
			}
			if len(lines) > 1 {
				sections = append(sections, strings.Join(lines, "\n")+"\n")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return sections
}
