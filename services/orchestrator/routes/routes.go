// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devassist-ai/devassist/services/orchestrator/handlers"
	"github.com/devassist-ai/devassist/services/orchestrator/rag"
	"github.com/devassist-ai/devassist/services/research"
)

// SetupRoutes registers every HTTP and websocket endpoint.
//
// The route surface mirrors what the chat frontend consumes: document
// management, chat over websocket, per-user memory, and the tool
// catalog used by external MCP clients.
func SetupRoutes(router *gin.Engine, deps handlers.ChatDeps,
	store *rag.ChunkStore, toolbox *research.Toolbox) {

	router.GET("/health", handlers.HealthCheck())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws/chat", handlers.HandleChatWebSocket(deps))

	router.POST("/upload", handlers.UploadDocument(store, deps.Metrics))
	router.POST("/clear", handlers.ClearDocuments(store))

	router.POST("/memory/clear", handlers.ClearMemory(deps.History))
	router.GET("/history/:userId", handlers.GetHistory(deps.History))

	router.GET("/tools", handlers.ListTools())
	router.POST("/tools/:name", handlers.InvokeTool(toolbox))
}
