// Package tools provides the research agent's concrete tools: web search,
// Wikipedia lookup, web-page text extraction, structured (table/list)
// extraction, local file reading, a calculator, and the terminal
// final_answer tool.
//
// All tools implement flow/tool.Tool. Network tools take an injected
// *http.Client so callers control timeouts and transports; passing nil
// selects a client with a 30 second timeout.
package tools

import (
	"net/http"
	"time"

	"github.com/gaiaflow/gaiaflow/flow/tool"
)

// userAgent identifies gaiaflow to the services its tools call. Wikipedia
// in particular rejects requests without one.
const userAgent = "gaiaflow/1.0 (https://github.com/gaiaflow/gaiaflow)"

// maxFetchBytes caps how much of a remote response body is read.
const maxFetchBytes = 2 << 20

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

// Default builds the standard research toolset, registered in the order
// the agent's prompts describe them. A non-empty tavilyKey switches
// web_search from DuckDuckGo scraping to the Tavily API.
func Default(client *http.Client, tavilyKey string) (*tool.Registry, error) {
	var searchOpts []SearchOption
	if tavilyKey != "" {
		searchOpts = append(searchOpts, WithTavilyKey(tavilyKey))
	}

	reg := tool.NewRegistry()
	for _, t := range []tool.Tool{
		NewWebSearch(client, searchOpts...),
		NewWikipedia(client),
		NewWebPage(client),
		NewExtractStructured(client),
		NewReadFile(),
		NewCalculator(),
		NewFinalAnswer(),
	} {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func orDefault(client *http.Client) *http.Client {
	if client == nil {
		return defaultHTTPClient
	}
	return client
}
