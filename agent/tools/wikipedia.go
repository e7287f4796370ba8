package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

const wikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

// wikipediaExtractLimit caps the article extract returned to the model.
const wikipediaExtractLimit = 4000

// Wikipedia looks up topics through the MediaWiki API: a title search
// followed by a plain-text intro extract of the best match.
type Wikipedia struct {
	client   *http.Client
	endpoint string
}

// NewWikipedia creates the wikipedia tool. A nil client selects a
// 30-second-timeout default.
func NewWikipedia(client *http.Client) *Wikipedia {
	return &Wikipedia{
		client:   orDefault(client),
		endpoint: wikipediaEndpoint,
	}
}

// Name implements tool.Tool.
func (w *Wikipedia) Name() string {
	return "wikipedia"
}

// Description implements tool.Tool.
func (w *Wikipedia) Description() string {
	return "Search Wikipedia for information about a topic, person, place, or event. Returns the introduction of the best matching article."
}

// Schema implements tool.Tool.
func (w *Wikipedia) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The topic to look up, e.g. \"Mercedes Sosa\"",
			},
		},
		"required": []string{"query"},
	}
}

// Run implements tool.Tool.
func (w *Wikipedia) Run(ctx context.Context, input map[string]any) (string, error) {
	query, ok := tool.StringArg(input, "query")
	if !ok {
		return "", fmt.Errorf("query parameter required")
	}

	title, err := w.search(ctx, query)
	if err != nil {
		return "", err
	}
	if title == "" {
		return fmt.Sprintf("No Wikipedia article found for %q.", query), nil
	}

	extract, err := w.extract(ctx, title)
	if err != nil {
		return "", err
	}
	if extract == "" {
		return fmt.Sprintf("Wikipedia article %q has no readable introduction.", title), nil
	}
	return title + "\n\n" + truncate(extract, wikipediaExtractLimit), nil
}

func (w *Wikipedia) search(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {query},
		"srlimit":       {"1"},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var parsed struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := w.call(ctx, params, &parsed); err != nil {
		return "", fmt.Errorf("wikipedia search: %w", err)
	}
	if len(parsed.Query.Search) == 0 {
		return "", nil
	}
	return parsed.Query.Search[0].Title, nil
}

func (w *Wikipedia) extract(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts"},
		"explaintext":   {"1"},
		"exintro":       {"1"},
		"redirects":     {"1"},
		"titles":        {title},
		"format":        {"json"},
		"formatversion": {"2"},
	}

	var parsed struct {
		Query struct {
			Pages []struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := w.call(ctx, params, &parsed); err != nil {
		return "", fmt.Errorf("wikipedia extract: %w", err)
	}
	if len(parsed.Query.Pages) == 0 {
		return "", nil
	}
	return parsed.Query.Pages[0].Extract, nil
}

func (w *Wikipedia) call(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxFetchBytes)).Decode(out)
}
