// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the orchestrator service.
//
// This file contains the websocket chat frame types. For session history
// types, see session.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single chat message.
	// Oversized payloads are rejected before any provider call.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// RoleUser marks a message authored by the human user.
	RoleUser = "user"

	// RoleAssistant marks a message authored by the model.
	RoleAssistant = "assistant"

	// RoleSystem marks the persona/instruction message.
	RoleSystem = "system"
)

// Frame status values sent over the websocket.
const (
	StatusStreaming = "streaming"
	StatusSearching = "searching"
	StatusDone      = "done"
	StatusError     = "error"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) so oversized payloads
// cannot slip past a rune-based limit.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Message
// =============================================================================

// Message is a single conversation entry.
//
// # Fields
//
//   - Role: "user", "assistant" or "system".
//   - Content: Message text, limited to 32KB.
//   - Timestamp: Unix milliseconds when the message was persisted. Zero for
//     messages that have not been through the history store.
type Message struct {
	Role      string `json:"role" validate:"required,oneof=user assistant system"`
	Content   string `json:"content" validate:"required,maxbytes"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// =============================================================================
// Websocket Chat Request
// =============================================================================

// ChatRequest is one inbound websocket frame from the client.
//
// # Fields
//
//   - Message: Required. The user's query.
//   - UserID: Required. Identity used for session history.
//   - SessionID: Optional. Existing session to continue. When empty the
//     orchestrator mints a fresh id and binds it to the connection.
//   - WebSearchEnabled: Optional. Allow web research for in-domain queries.
//   - AlternateProviderEnabled: Optional. Route the query to the alternate
//     direct-answer provider instead of the generation pipeline.
//
// # Examples
//
//	{"message": "What is OAuth?", "user_id": "u-1", "web_search_enabled": true}
type ChatRequest struct {
	Message                  string `json:"message" validate:"required,maxbytes"`
	UserID                   string `json:"user_id" validate:"required"`
	SessionID                string `json:"session_id"`
	WebSearchEnabled         bool   `json:"web_search_enabled"`
	AlternateProviderEnabled bool   `json:"alternate_provider_enabled"`
}

// Validate validates the ChatRequest fields.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// =============================================================================
// Websocket Stream Frames
// =============================================================================

// StreamFrame is one outbound websocket frame.
//
// Exactly one terminal frame is sent per turn: either a "done" frame carrying
// the turn metadata, or an "error" frame carrying a user-facing message.
// "streaming" frames carry at most one token each, in provider emission order.
type StreamFrame struct {
	Token        string `json:"token,omitempty"`
	Status       string `json:"status"`
	SessionID    string `json:"session_id,omitempty"`
	Message      string `json:"message,omitempty"`
	MCPUsed      *bool  `json:"mcp_used,omitempty"`
	SourcesCount *int   `json:"sources_count,omitempty"`
	QwenUsed     *bool  `json:"qwen_used,omitempty"`
}

// TokenFrame builds a single-token streaming frame.
func TokenFrame(token, sessionID string) StreamFrame {
	return StreamFrame{Token: token, Status: StatusStreaming, SessionID: sessionID}
}

// StatusFrame builds a transient status notice frame (e.g. "searching").
func StatusFrame(status, message, sessionID string) StreamFrame {
	return StreamFrame{Status: status, Message: message, SessionID: sessionID}
}

// DoneFrame builds the terminal completion frame for a successful turn.
func DoneFrame(sessionID string, mcpUsed bool, sourcesCount int, qwenUsed bool) StreamFrame {
	return StreamFrame{
		Status:       StatusDone,
		SessionID:    sessionID,
		MCPUsed:      &mcpUsed,
		SourcesCount: &sourcesCount,
		QwenUsed:     &qwenUsed,
	}
}

// ErrorFrame builds the terminal error frame for a failed turn.
func ErrorFrame(message string) StreamFrame {
	return StreamFrame{Status: StatusError, Message: message}
}

// =============================================================================
// Helpers
// =============================================================================

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// NowMillis returns the current wall clock in Unix milliseconds, the
// timestamp unit used throughout the history store.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
