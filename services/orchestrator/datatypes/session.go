// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "strings"

// =============================================================================
// History Read Types
// =============================================================================

const (
	// sessionTitleLimit bounds the session title shown on the history page.
	sessionTitleLimit = 50

	// sessionPreviewLimit bounds the session preview shown on the history page.
	sessionPreviewLimit = 100
)

// SessionSummary is one conversation thread as returned by the history
// read endpoint: a display title and preview derived from the first message,
// the most recent activity timestamp, and the full ordered message list.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	Timestamp int64     `json:"timestamp"`
	Messages  []Message `json:"messages"`
}

// NewSessionSummary derives a summary from an ordered message list.
// The messages must be in creation order (oldest first); the summary
// timestamp is taken from the newest entry.
func NewSessionSummary(sessionID string, messages []Message) SessionSummary {
	s := SessionSummary{SessionID: sessionID, Messages: messages}
	if len(messages) == 0 {
		return s
	}
	first := messages[0].Content
	s.Title = truncateWithEllipsis(first, sessionTitleLimit)
	s.Preview = truncateWithEllipsis(first, sessionPreviewLimit)
	s.Timestamp = messages[len(messages)-1].Timestamp
	return s
}

// truncateWithEllipsis shortens s to at most limit runes, appending "..."
// when anything was cut. Rune-based so multibyte text is never split.
func truncateWithEllipsis(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
