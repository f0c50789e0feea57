// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package qwen provides the alternate-answer provider used by the chat
// bypass mode. The provider blocks until a complete answer is available;
// the orchestrator re-streams it so clients observe the same incremental
// protocol as the normal path.
package qwen

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
)

// Answer is a complete alternate-provider response.
type Answer struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Provider returns one complete answer per query.
type Provider interface {
	Answer(ctx context.Context, query string) (Answer, error)
}

// HTTPProvider talks to the Qwen automation sidecar over HTTP. The sidecar
// drives a logged-in browser session and returns the extracted answer text.
type HTTPProvider struct {
	httpClient *http.Client
	baseURL    string
}

var _ Provider = (*HTTPProvider)(nil)

type queryRequest struct {
	Query string `json:"query"`
}

// NewHTTPProvider builds a provider from QWEN_SERVICE_URL. The sidecar can
// take the better part of a minute per query, so the client timeout is
// generous.
func NewHTTPProvider() (*HTTPProvider, error) {
	baseURL := os.Getenv("QWEN_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("QWEN_SERVICE_URL environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Qwen provider", "base_url", baseURL)
	return &HTTPProvider{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    baseURL,
	}, nil
}

// Answer sends the raw user message to the sidecar and cleans the result.
//
// # Description
//
// POSTs {"query": ...} to /query and expects {"title", "content"} back.
// The content is run through CleanResponse before return, so callers always
// see normalized markdown.
//
// # Outputs
//
//   - Answer: the cleaned answer. Content may be empty when the sidecar
//     could not extract a response; callers decide how to surface that.
//   - error: transport or decode failures.
func (p *HTTPProvider) Answer(ctx context.Context, query string) (Answer, error) {
	reqBody, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to marshal qwen query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/query",
		bytes.NewBuffer(reqBody))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to create qwen request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Error("Qwen sidecar call failed", "error", err)
		return Answer{}, fmt.Errorf("qwen sidecar call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to read qwen response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Qwen sidecar returned an error", "status_code", resp.StatusCode,
			"response", string(respBody))
		return Answer{}, fmt.Errorf("qwen sidecar failed with status %d: %s",
			resp.StatusCode, string(respBody))
	}

	var answer Answer
	if err := json.Unmarshal(respBody, &answer); err != nil {
		return Answer{}, fmt.Errorf("failed to parse qwen response: %w", err)
	}
	answer.Content = CleanResponse(answer.Content)
	return answer, nil
}
