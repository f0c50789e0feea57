// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package qwen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
	}
}

// TestHTTPProvider_Answer tests a successful sidecar round trip.
func TestHTTPProvider_Answer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("Expected path /query, got %s", r.URL.Path)
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Query != "explain goroutines" {
			t.Errorf("Expected query 'explain goroutines', got %q", req.Query)
		}
		json.NewEncoder(w).Encode(Answer{
			Title:   "🤖 Qwen AI Response",
			Content: "Goroutines are lightweight threads",
		})
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	answer, err := provider.Answer(context.Background(), "explain goroutines")
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if answer.Title != "🤖 Qwen AI Response" {
		t.Errorf("unexpected title %q", answer.Title)
	}
	// Content passes through CleanResponse, which bullets loose prose.
	if answer.Content != "- Goroutines are lightweight threads" {
		t.Errorf("unexpected content %q", answer.Content)
	}
}

// TestHTTPProvider_AnswerEmptyContent tests that empty sidecar content is
// returned without error. The chat handler decides how to surface it.
func TestHTTPProvider_AnswerEmptyContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Answer{Title: "Qwen Error", Content: ""})
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	answer, err := provider.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}
	if answer.Content != "" {
		t.Errorf("expected empty content, got %q", answer.Content)
	}
}

// TestHTTPProvider_AnswerServerError tests non-200 handling.
func TestHTTPProvider_AnswerServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "browser session expired", http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	_, err := provider.Answer(context.Background(), "anything")
	if err == nil {
		t.Fatal("Answer should return error for server error")
	}
}
