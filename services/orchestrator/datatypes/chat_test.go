// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ChatRequest Validation Tests
// =============================================================================

func TestChatRequestValidate_Success(t *testing.T) {
	req := ChatRequest{Message: "What is OAuth?", UserID: "u-1"}
	assert.NoError(t, req.Validate())
}

func TestChatRequestValidate_MissingMessage(t *testing.T) {
	req := ChatRequest{UserID: "u-1"}
	assert.Error(t, req.Validate())
}

func TestChatRequestValidate_MissingUserID(t *testing.T) {
	req := ChatRequest{Message: "hello"}
	assert.Error(t, req.Validate())
}

func TestChatRequestValidate_OversizedMessage(t *testing.T) {
	req := ChatRequest{
		Message: strings.Repeat("a", MaxMessageContentBytes+1),
		UserID:  "u-1",
	}
	assert.Error(t, req.Validate(), "messages above 32KB should be rejected")
}

// =============================================================================
// Frame Tests
// =============================================================================

func TestDoneFrameCarriesAllFlags(t *testing.T) {
	frame := DoneFrame("sess-1", true, 5, false)

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "done", decoded["status"])
	assert.Equal(t, "sess-1", decoded["session_id"])
	assert.Equal(t, true, decoded["mcp_used"])
	assert.Equal(t, float64(5), decoded["sources_count"])
	assert.Equal(t, false, decoded["qwen_used"])
}

func TestTokenFrameOmitsTurnMetadata(t *testing.T) {
	data, err := json.Marshal(TokenFrame("Hello", "sess-1"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Hello", decoded["token"])
	assert.Equal(t, "streaming", decoded["status"])
	assert.NotContains(t, decoded, "mcp_used")
	assert.NotContains(t, decoded, "qwen_used")
}

func TestErrorFrameHasNoSessionID(t *testing.T) {
	frame := ErrorFrame("boom")
	assert.Equal(t, StatusError, frame.Status)
	assert.Empty(t, frame.SessionID)
}

// =============================================================================
// SessionSummary Tests
// =============================================================================

func TestNewSessionSummaryTruncatesTitle(t *testing.T) {
	long := strings.Repeat("x", 80)
	summary := NewSessionSummary("s-1", []Message{
		{Role: RoleUser, Content: long, Timestamp: 100},
		{Role: RoleAssistant, Content: "answer", Timestamp: 200},
	})

	assert.Equal(t, strings.Repeat("x", 50)+"...", summary.Title)
	assert.Equal(t, strings.Repeat("x", 80), summary.Preview, "80 chars fits the 100-char preview")
	assert.Equal(t, int64(200), summary.Timestamp, "timestamp should track the newest message")
	assert.Len(t, summary.Messages, 2)
}

func TestNewSessionSummaryShortMessage(t *testing.T) {
	summary := NewSessionSummary("s-2", []Message{
		{Role: RoleUser, Content: "hi", Timestamp: 5},
	})
	assert.Equal(t, "hi", summary.Title)
	assert.Equal(t, "hi", summary.Preview)
}

func TestNewSessionSummaryEmpty(t *testing.T) {
	summary := NewSessionSummary("s-3", nil)
	assert.Empty(t, summary.Title)
	assert.Zero(t, summary.Timestamp)
}
