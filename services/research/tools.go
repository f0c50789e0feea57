// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ToolKind enumerates the invocable capabilities. Dispatch is a switch over
// this closed set, not a name-to-callable map, so adding a capability means
// adding a case and its fixed input/output contract.
type ToolKind int

const (
	ToolUnknown ToolKind = iota

	// ToolQueryProgrammingWeb searches the web for programming queries.
	ToolQueryProgrammingWeb
)

const toolNameQueryProgrammingWeb = "queryProgrammingWeb"

// ToolKindFromName maps a wire-level tool name to its kind. Unrecognized
// names map to ToolUnknown.
func ToolKindFromName(name string) ToolKind {
	switch name {
	case toolNameQueryProgrammingWeb:
		return ToolQueryProgrammingWeb
	default:
		return ToolUnknown
	}
}

// Name returns the wire-level tool name.
func (k ToolKind) Name() string {
	switch k {
	case ToolQueryProgrammingWeb:
		return toolNameQueryProgrammingWeb
	default:
		return "unknown"
	}
}

// ToolSpec describes one tool for the listing endpoint.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ListTools returns the specs of every invocable tool.
func ListTools() []ToolSpec {
	return []ToolSpec{
		{
			Name: toolNameQueryProgrammingWeb,
			Description: "Search the web for programming-related information. " +
				"Returns titles, URLs, and snippets from top search results. " +
				"Only works with programming queries (Python, JavaScript, APIs, frameworks, etc.)",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Programming-related search query",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results to return (default: 5)",
						"default":     DefaultMaxResults,
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// ToolInvocation is the argument payload for a tool call.
type ToolInvocation struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// Source is a title/URL pair cited alongside tool results.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ToolResult is the fixed output contract of a successful tool call.
type ToolResult struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
	Sources []Source `json:"sources"`
}

// ErrUnknownTool is returned for names outside the closed tool set.
var ErrUnknownTool = errors.New("unknown tool")

// ErrQueryOutOfDomain is returned when the query fails the programming
// relevance check. Its text is surfaced to the caller verbatim.
var ErrQueryOutOfDomain = errors.New(
	"Query must be programming-related. Include keywords like: code, python, javascript, api, etc.")

// Toolbox dispatches tool invocations to their backing services.
type Toolbox struct {
	researcher Researcher
}

func NewToolbox(researcher Researcher) *Toolbox {
	return &Toolbox{researcher: researcher}
}

// Invoke runs one tool call.
//
// # Description
//
// Dispatches on the tool kind. queryProgrammingWeb first validates domain
// relevance, then searches; results are truncated to the invocation's
// max_results when one is given.
//
// # Outputs
//
//   - ToolResult: the fixed result contract on success.
//   - error: ErrUnknownTool, ErrQueryOutOfDomain, or a search failure.
func (tb *Toolbox) Invoke(ctx context.Context, kind ToolKind, inv ToolInvocation) (ToolResult, error) {
	switch kind {
	case ToolQueryProgrammingWeb:
		return tb.queryProgrammingWeb(ctx, inv)
	default:
		return ToolResult{}, fmt.Errorf("%w: kind %d", ErrUnknownTool, kind)
	}
}

func (tb *Toolbox) queryProgrammingWeb(ctx context.Context, inv ToolInvocation) (ToolResult, error) {
	if tb.researcher == nil {
		return ToolResult{}, errors.New("web research is not configured")
	}
	if !IsProgrammingQuery(inv.Query) {
		slog.Debug("Tool query rejected as out of domain", "query", inv.Query)
		return ToolResult{}, ErrQueryOutOfDomain
	}

	results, err := tb.researcher.Search(ctx, inv.Query)
	if err != nil {
		return ToolResult{}, fmt.Errorf("web search failed: %w", err)
	}
	if inv.MaxResults > 0 && len(results) > inv.MaxResults {
		results = results[:inv.MaxResults]
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{Title: r.Title, URL: r.URL})
	}
	return ToolResult{
		Query:   inv.Query,
		Results: results,
		Count:   len(results),
		Sources: sources,
	}, nil
}
