// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devassist-ai/devassist/services/research"
)

// ListTools returns the tool catalog.
func ListTools() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tools": research.ListTools()})
	}
}

// InvokeTool runs one named tool against the toolbox.
//
// # Outputs
//
//   - 200 ToolResult on success.
//   - 404 {"error": "Unknown tool: <name>"} for names outside the catalog.
//   - 200 {"error": ..., "query": ..., "results": []} when the query fails
//     the relevance gate. The error body mirrors normal result shape so
//     clients render it inline rather than as a transport failure.
func InvokeTool(toolbox *research.Toolbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		kind := research.ToolKindFromName(name)
		if kind == research.ToolUnknown {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown tool: " + name})
			return
		}

		var inv research.ToolInvocation
		if err := c.ShouldBindJSON(&inv); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tool arguments: " + err.Error()})
			return
		}

		result, err := toolbox.Invoke(c.Request.Context(), kind, inv)
		if err != nil {
			if errors.Is(err, research.ErrQueryOutOfDomain) {
				c.JSON(http.StatusOK, gin.H{
					"error":   err.Error(),
					"query":   inv.Query,
					"results": []research.Result{},
				})
				return
			}
			slog.Error("Tool invocation failed", "tool", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
