// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devassist-ai/devassist/services/orchestrator/observability"
	"github.com/devassist-ai/devassist/services/orchestrator/rag"
)

// MaxUploadBytes caps uploaded document size at 5 MiB.
const MaxUploadBytes = 5 * 1024 * 1024

var allowedUploadExtensions = []string{".txt", ".md", ".pdf"}

func hasAllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range allowedUploadExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// UploadDocument ingests one uploaded file into the chunk store.
//
// # Description
//
// Accepts a multipart form with a "file" field. Rejections (wrong
// extension, oversize, undecodable content) return a structured error body
// and leave the store untouched. Success returns the chunk count.
//
// # Outputs
//
//   - 200 {"status": "success", "chunks_processed": n, "filename": ...}
//   - 400 {"status": "error", "message": ...}
func UploadDocument(store *rag.ChunkStore, metrics *observability.ChatMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "No file provided",
			})
			return
		}

		if !hasAllowedExtension(fileHeader.Filename) {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "Invalid file type. Use .txt, .md, or .pdf",
			})
			return
		}
		if fileHeader.Size > MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "File too large (max 5MB)",
			})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			slog.Error("Failed to open uploaded file", "filename", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to read uploaded file",
			})
			return
		}
		defer file.Close()

		// Size is re-checked on the actual read; the header value is
		// client-supplied.
		content, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
		if err != nil {
			slog.Error("Failed to read uploaded file", "filename", fileHeader.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to read uploaded file",
			})
			return
		}
		if len(content) > MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "File too large (max 5MB)",
			})
			return
		}

		count, err := store.Ingest(c.Request.Context(), content, fileHeader.Filename)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, rag.ErrUndecodableContent) {
				status = http.StatusBadRequest
			}
			slog.Error("Document ingestion failed", "filename", fileHeader.Filename, "error", err)
			c.JSON(status, gin.H{
				"status":  "error",
				"message": err.Error(),
			})
			return
		}

		if metrics != nil {
			metrics.ChunksIngestedTotal.Add(float64(count))
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "success",
			"chunks_processed": count,
			"filename":         fileHeader.Filename,
		})
	}
}

// ClearDocuments discards every stored chunk. Idempotent.
func ClearDocuments(store *rag.ChunkStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok := store.Clear(); !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "Failed to clear documents",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "All documents cleared",
		})
	}
}
