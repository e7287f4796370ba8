package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// DefaultMaxResults is how many search hits web_search returns.
const DefaultMaxResults = 5

const (
	duckduckgoEndpoint = "https://html.duckduckgo.com/html/"
	tavilyEndpoint     = "https://api.tavily.com/search"
)

// WebSearch searches the web. Without a Tavily API key it scrapes the
// DuckDuckGo HTML endpoint, which needs no credentials; with one it calls
// the Tavily REST API instead.
type WebSearch struct {
	client     *http.Client
	tavilyKey  string
	maxResults int

	// endpoints are fields so tests can point them at local servers.
	ddgURL    string
	tavilyURL string
}

// SearchOption configures WebSearch.
type SearchOption func(*WebSearch)

// WithTavilyKey switches the search backend to the Tavily API.
func WithTavilyKey(key string) SearchOption {
	return func(w *WebSearch) {
		w.tavilyKey = key
	}
}

// WithMaxResults caps the number of returned hits. Default:
// DefaultMaxResults.
func WithMaxResults(n int) SearchOption {
	return func(w *WebSearch) {
		if n > 0 {
			w.maxResults = n
		}
	}
}

// NewWebSearch creates the web_search tool. A nil client selects a
// 30-second-timeout default.
func NewWebSearch(client *http.Client, opts ...SearchOption) *WebSearch {
	w := &WebSearch{
		client:     orDefault(client),
		maxResults: DefaultMaxResults,
		ddgURL:     duckduckgoEndpoint,
		tavilyURL:  tavilyEndpoint,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Name implements tool.Tool.
func (w *WebSearch) Name() string {
	return "web_search"
}

// Description implements tool.Tool.
func (w *WebSearch) Description() string {
	return "Search the web for current information. Use this tool to find recent information, news, or general web content."
}

// Schema implements tool.Tool.
func (w *WebSearch) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}
}

// Run implements tool.Tool. Results come back one per hit, numbered, as
// "title - url" with the snippet indented below.
func (w *WebSearch) Run(ctx context.Context, input map[string]any) (string, error) {
	query, ok := tool.StringArg(input, "query")
	if !ok {
		return "", fmt.Errorf("query parameter required")
	}

	var (
		results []searchResult
		err     error
	)
	if w.tavilyKey != "" {
		results, err = w.tavily(ctx, query)
	} else {
		results, err = w.duckduckgo(ctx, query)
	}
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query), nil
	}
	if len(results) > w.maxResults {
		results = results[:w.maxResults]
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, r.title, r.url)
		if r.snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

type searchResult struct {
	title   string
	url     string
	snippet string
}

// duckduckgo scrapes the HTML search endpoint: result titles are anchors
// classed result__a, snippets are elements classed result__snippet,
// paired by document order.
func (w *WebSearch) duckduckgo(ctx context.Context, query string) ([]searchResult, error) {
	doc, err := fetchHTML(ctx, w.client, w.ddgURL+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}

	var results []searchResult
	var snippets []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				results = append(results, searchResult{
					title: nodeText(n, nil),
					url:   cleanResultURL(attr(n, "href")),
				})
			case hasClass(n, "result__snippet"):
				snippets = append(snippets, nodeText(n, nil))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	for i := range results {
		if i < len(snippets) {
			results[i].snippet = snippets[i]
		}
	}
	return results, nil
}

// cleanResultURL unwraps DuckDuckGo's redirect links, which carry the
// target in the uddg query parameter.
func cleanResultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String()
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (w *WebSearch) tavily(ctx context.Context, query string) ([]searchResult, error) {
	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: w.maxResults})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.tavilyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.tavilyKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily search: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("tavily search: malformed response: %w", err)
	}

	results := make([]searchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, searchResult{title: r.Title, url: r.URL, snippet: r.Content})
	}
	return results, nil
}
