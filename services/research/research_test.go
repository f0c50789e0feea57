// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package research

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// IsProgrammingQuery Tests
// =============================================================================

// TestIsProgrammingQuery tests the domain-relevance classifier.
func TestIsProgrammingQuery(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		query    string
		expected bool
	}{
		{"direct keyword", "python list comprehension", true},
		{"api keyword", "how do I call this API", true},
		{"keyword inside phrase", "best websocket library", true},
		{"build verb plus science", "simulate gravity in a game", true},
		{"science without build verb", "explain gravity", false},
		{"off topic", "recipe for pancakes", false},
		{"empty", "", false},
		{"case insensitive", "DEBUG my FUNCTION", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsProgrammingQuery(tc.query); got != tc.expected {
				t.Errorf("IsProgrammingQuery(%q) = %v, want %v", tc.query, got, tc.expected)
			}
		})
	}
}

// =============================================================================
// HTTPResearcher Tests
// =============================================================================

func newTestResearcher(baseURL string, maxResults int) *HTTPResearcher {
	return &HTTPResearcher{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxResults: maxResults,
	}
}

// TestHTTPResearcher_Search tests a successful sidecar search.
func TestHTTPResearcher_Search(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("Expected path /search, got %s", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Query != "golang channels" {
			t.Errorf("Expected query 'golang channels', got %q", req.Query)
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []Result{
			{Title: "Go channels", URL: "https://example.com/1", Snippet: "Channels are typed conduits"},
			{Title: "Channel patterns", URL: "https://example.com/2", Snippet: "Fan-in, fan-out"},
		}})
	}))
	defer server.Close()

	researcher := newTestResearcher(server.URL, 5)

	results, err := researcher.Search(context.Background(), "golang channels")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Go channels" {
		t.Errorf("unexpected first title %q", results[0].Title)
	}
}

// TestHTTPResearcher_SearchTruncatesResults tests the result cap.
func TestHTTPResearcher_SearchTruncatesResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := searchResponse{}
		for i := 0; i < 10; i++ {
			resp.Results = append(resp.Results, Result{Title: "hit", URL: "https://example.com"})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	researcher := newTestResearcher(server.URL, 3)

	results, err := researcher.Search(context.Background(), "docker compose")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 results after truncation, got %d", len(results))
	}
}

// TestHTTPResearcher_SearchCancelledContext tests that the limiter wait
// honors cancellation before any network call.
func TestHTTPResearcher_SearchCancelledContext(t *testing.T) {
	t.Parallel()

	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	researcher := newTestResearcher(server.URL, 5)
	researcher.limiter = rate.NewLimiter(rate.Every(time.Hour), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := researcher.Search(ctx, "anything")
	if err == nil {
		t.Fatal("Search should fail with cancelled context")
	}
	if called {
		t.Error("sidecar should not be called when context is cancelled")
	}
}

// =============================================================================
// Toolbox Tests
// =============================================================================

type stubResearcher struct {
	results []Result
	err     error
	queries []string
}

func (s *stubResearcher) Search(ctx context.Context, query string) ([]Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

// TestToolKindFromName tests wire-name mapping over the closed set.
func TestToolKindFromName(t *testing.T) {
	t.Parallel()

	if ToolKindFromName("queryProgrammingWeb") != ToolQueryProgrammingWeb {
		t.Error("queryProgrammingWeb should map to ToolQueryProgrammingWeb")
	}
	if ToolKindFromName("deleteEverything") != ToolUnknown {
		t.Error("unrecognized names should map to ToolUnknown")
	}
	if ToolQueryProgrammingWeb.Name() != "queryProgrammingWeb" {
		t.Errorf("round trip name mismatch: %q", ToolQueryProgrammingWeb.Name())
	}
}

// TestToolbox_Invoke_Success tests the fixed result contract.
func TestToolbox_Invoke_Success(t *testing.T) {
	t.Parallel()

	stub := &stubResearcher{results: []Result{
		{Title: "FastAPI docs", URL: "https://example.com/fastapi", Snippet: "..."},
		{Title: "Tutorial", URL: "https://example.com/tut", Snippet: "..."},
	}}
	tb := NewToolbox(stub)

	result, err := tb.Invoke(context.Background(), ToolQueryProgrammingWeb,
		ToolInvocation{Query: "fastapi tutorial"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if result.Query != "fastapi tutorial" {
		t.Errorf("unexpected query %q", result.Query)
	}
	if result.Count != 2 || len(result.Results) != 2 {
		t.Errorf("Expected 2 results, got count=%d len=%d", result.Count, len(result.Results))
	}
	if len(result.Sources) != 2 || result.Sources[0].URL != "https://example.com/fastapi" {
		t.Errorf("unexpected sources %+v", result.Sources)
	}
}

// TestToolbox_Invoke_MaxResults tests per-invocation truncation.
func TestToolbox_Invoke_MaxResults(t *testing.T) {
	t.Parallel()

	stub := &stubResearcher{results: []Result{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}}
	tb := NewToolbox(stub)

	result, err := tb.Invoke(context.Background(), ToolQueryProgrammingWeb,
		ToolInvocation{Query: "python generators", MaxResults: 1})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if result.Count != 1 {
		t.Errorf("Expected count 1, got %d", result.Count)
	}
}

// TestToolbox_Invoke_OutOfDomain tests the relevance gate.
func TestToolbox_Invoke_OutOfDomain(t *testing.T) {
	t.Parallel()

	stub := &stubResearcher{}
	tb := NewToolbox(stub)

	_, err := tb.Invoke(context.Background(), ToolQueryProgrammingWeb,
		ToolInvocation{Query: "recipe for pancakes"})
	if !errors.Is(err, ErrQueryOutOfDomain) {
		t.Fatalf("Expected ErrQueryOutOfDomain, got: %v", err)
	}
	if len(stub.queries) != 0 {
		t.Error("researcher should not be called for out-of-domain queries")
	}
}

// TestToolbox_Invoke_UnknownKind tests the closed-set boundary.
func TestToolbox_Invoke_UnknownKind(t *testing.T) {
	t.Parallel()

	tb := NewToolbox(&stubResearcher{})

	_, err := tb.Invoke(context.Background(), ToolUnknown, ToolInvocation{Query: "code"})
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Expected ErrUnknownTool, got: %v", err)
	}
}

// TestListTools tests the listing surface.
func TestListTools(t *testing.T) {
	t.Parallel()

	tools := ListTools()
	if len(tools) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(tools))
	}
	if tools[0].Name != "queryProgrammingWeb" {
		t.Errorf("unexpected tool name %q", tools[0].Name)
	}
	if tools[0].InputSchema["type"] != "object" {
		t.Errorf("schema should be an object type")
	}
}
