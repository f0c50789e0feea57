// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/devassist-ai/devassist/services/orchestrator/datatypes"
	"github.com/devassist-ai/devassist/services/orchestrator/memory"
)

type clearMemoryRequest struct {
	UserID string `json:"user_id"`
}

// ClearMemory drops every stored conversation for one user.
func ClearMemory(history memory.History) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req clearMemoryRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "user_id is required",
			})
			return
		}

		if ok := history.Clear(c.Request.Context(), req.UserID); !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to clear conversation memory",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Conversation memory cleared",
		})
	}
}

// GetHistory returns a user's sessions as summaries, newest first.
//
// # Outputs
//
// 200 {"user_id": ..., "sessions": [SessionSummary...]}. A user with no
// stored conversations gets an empty sessions array, not an error.
func GetHistory(history memory.History) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "userId is required",
			})
			return
		}

		sessions, err := history.Sessions(c.Request.Context(), userID)
		if err != nil {
			slog.Error("Failed to read session history", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to read session history",
			})
			return
		}

		summaries := make([]datatypes.SessionSummary, 0, len(sessions))
		for sessionID, messages := range sessions {
			summaries = append(summaries, datatypes.NewSessionSummary(sessionID, messages))
		}
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].Timestamp > summaries[j].Timestamp
		})

		c.JSON(http.StatusOK, gin.H{
			"user_id":  userID,
			"sessions": summaries,
		})
	}
}
