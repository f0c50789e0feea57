// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devassist-ai/devassist/services/research"
)

type fakeResearcher struct {
	results []research.Result
	err     error
}

func (f *fakeResearcher) Search(ctx context.Context, query string) ([]research.Result, error) {
	return f.results, f.err
}

func newToolsRouter(t *testing.T, researcher research.Researcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/tools", ListTools())
	r.POST("/tools/:name", InvokeTool(research.NewToolbox(researcher)))
	return r
}

func TestListTools_ReturnsCatalog(t *testing.T) {
	router := newToolsRouter(t, &fakeResearcher{})

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Tools []research.ToolSpec `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tools, 1)
	assert.Equal(t, "queryProgrammingWeb", body.Tools[0].Name)
}

func TestInvokeTool_Success(t *testing.T) {
	router := newToolsRouter(t, &fakeResearcher{
		results: []research.Result{
			{Title: "Go slices", URL: "https://go.dev/blog/slices", Snippet: "intro"},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/tools/queryProgrammingWeb",
		strings.NewReader(`{"query": "golang slice internals"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result research.ToolResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "golang slice internals", result.Query)
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "https://go.dev/blog/slices", result.Sources[0].URL)
}

// TestInvokeTool_OutOfDomainQuery verifies the relevance gate responds
// with 200 and the result-shaped error body rather than a transport
// failure.
func TestInvokeTool_OutOfDomainQuery(t *testing.T) {
	router := newToolsRouter(t, &fakeResearcher{})

	req := httptest.NewRequest(http.MethodPost, "/tools/queryProgrammingWeb",
		strings.NewReader(`{"query": "best pizza in naples"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t,
		"Query must be programming-related. Include keywords like: code, python, javascript, api, etc.",
		body["error"])
	assert.Equal(t, "best pizza in naples", body["query"])
	assert.Empty(t, body["results"])
}

func TestInvokeTool_UnknownName(t *testing.T) {
	router := newToolsRouter(t, &fakeResearcher{})

	req := httptest.NewRequest(http.MethodPost, "/tools/launchMissiles",
		strings.NewReader(`{"query": "python code"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Unknown tool: launchMissiles", body["error"])
}
