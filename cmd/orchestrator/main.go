// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command orchestrator starts the DevAssist backend HTTP server.
//
// This is the main entry point for the containerized orchestrator
// service. It reads configuration from environment variables and starts
// the server.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 8000)
//   - LLM_BACKEND_TYPE: LLM provider - ollama, openai (default: ollama)
//   - OLLAMA_BASE_URL / OLLAMA_MODEL: Ollama backend settings
//   - OPENAI_API_KEY / OPENAI_MODEL: OpenAI backend settings
//   - HISTORY_DB_PATH: Badger directory for conversation memory
//   - EMBEDDING_SERVICE_URL: embedding sidecar (optional)
//   - QWEN_SERVICE_URL: alternate provider sidecar (optional)
//   - RESEARCH_SERVICE_URL: web research sidecar (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
//     (default: devassist-otel-collector:4317)
//
// # Usage
//
//	go build -o orchestrator ./cmd/orchestrator
//	./orchestrator
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/devassist-ai/devassist/pkg/logging"
	"github.com/devassist-ai/devassist/services/orchestrator"
)

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "orchestrator",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := orchestrator.Config{
		Port:         getEnvInt("ORCHESTRATOR_PORT", 8000),
		LLMBackend:   getEnvString("LLM_BACKEND_TYPE", "ollama"),
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "devassist-otel-collector:4317"),
		HistoryPath:  getEnvString("HISTORY_DB_PATH", "./data/history"),
		GinMode:      os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting orchestrator",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"history_path", cfg.HistoryPath,
	)

	svc, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator service: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer environment variable, using fallback",
			"key", key, "value", v, "fallback", fallback)
		return fallback
	}
	return n
}
