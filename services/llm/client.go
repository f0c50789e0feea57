// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides a common client interface over the LLM backends the
// orchestrator can stream from, plus the provider error classifier used to
// turn backend failures into user-facing messages.
package llm

import (
	"context"

	"github.com/devassist-ai/devassist/services/orchestrator/datatypes"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamEventType discriminates the events delivered to a StreamCallback.
type StreamEventType string

const (
	// StreamEventToken carries one incremental content token.
	StreamEventToken StreamEventType = "token"

	// StreamEventError carries a provider failure raised mid-stream.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one unit of streamed provider output.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Err     *ProviderError
}

// StreamCallback is called once per token, in provider emission order.
// Returning a non-nil error aborts the stream (e.g. on client disconnect).
type StreamCallback func(event StreamEvent) error

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
	ChatStream(ctx context.Context, messages []datatypes.Message, params GenerationParams,
		callback StreamCallback) error
}
