// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package research provides the web-research collaborator. Searches run
// through a browser-automation sidecar; this package wraps it with rate
// limiting, a programming-domain relevance check and the tool invocation
// surface exposed over HTTP.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Researcher performs a web search and returns ranked hits.
type Researcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// DefaultMaxResults caps search hits returned per query.
const DefaultMaxResults = 5

// HTTPResearcher talks to the search sidecar over HTTP. The sidecar drives
// a headless browser against a search engine, so calls are slow and a rate
// limiter keeps concurrent chat sessions from hammering it.
type HTTPResearcher struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxResults int
}

var _ Researcher = (*HTTPResearcher)(nil)

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// NewHTTPResearcher builds a researcher from RESEARCH_SERVICE_URL. One
// search per two seconds with a small burst tracks what the sidecar's
// browser session tolerates.
func NewHTTPResearcher() (*HTTPResearcher, error) {
	baseURL := os.Getenv("RESEARCH_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("RESEARCH_SERVICE_URL environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing web research client", "base_url", baseURL)
	return &HTTPResearcher{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 2),
		maxResults: DefaultMaxResults,
	}, nil
}

// Search runs one sidecar query and returns at most maxResults hits.
//
// # Description
//
// Waits on the rate limiter first, so a cancelled context returns before
// any network traffic. The sidecar returns a JSON body with a results
// array; hits beyond the cap are discarded rather than erroring.
func (r *HTTPResearcher) Search(ctx context.Context, query string) ([]Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit wait aborted: %w", err)
	}

	reqBody, err := json.Marshal(searchRequest{Query: query, MaxResults: r.maxResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/search",
		bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Error("Research sidecar call failed", "error", err)
		return nil, fmt.Errorf("research sidecar call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Research sidecar returned an error", "status_code", resp.StatusCode,
			"response", string(respBody))
		return nil, fmt.Errorf("research sidecar failed with status %d: %s",
			resp.StatusCode, string(respBody))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	results := parsed.Results
	if len(results) > r.maxResults {
		results = results[:r.maxResults]
	}
	slog.Debug("Web search complete", "query", query, "results", len(results))
	return results, nil
}
