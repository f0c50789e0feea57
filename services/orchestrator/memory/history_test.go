// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memory

import (
	"context"
	"fmt"
	"testing"
)

func newTestHistory(t *testing.T) *BadgerHistory {
	t.Helper()
	h, err := NewBadgerHistory(InMemoryConfig())
	if err != nil {
		t.Fatalf("failed to open in-memory history: %v", err)
	}
	t.Cleanup(func() {
		if err := h.Close(); err != nil {
			t.Errorf("failed to close history: %v", err)
		}
	})
	return h
}

// TestBadgerHistory_AppendAndReadWindow tests basic append/read round trip.
func TestBadgerHistory_AppendAndReadWindow(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	if err := h.Append(ctx, "alice", "s1", "user", "first question"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "alice", "s1", "assistant", "first answer"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	window, err := h.ReadWindow(ctx, "alice", "s1", 10)
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(window))
	}
	if window[0].Role != "user" || window[0].Content != "first question" {
		t.Errorf("unexpected first message %+v", window[0])
	}
	if window[1].Role != "assistant" || window[1].Content != "first answer" {
		t.Errorf("unexpected second message %+v", window[1])
	}
}

// TestBadgerHistory_ReadWindowLimit tests that the window keeps the most
// recent entries and returns them oldest first.
func TestBadgerHistory_ReadWindowLimit(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if err := h.Append(ctx, "bob", "s1", "user", fmt.Sprintf("message %02d", i)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	window, err := h.ReadWindow(ctx, "bob", "s1", 10)
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	if len(window) != 10 {
		t.Fatalf("Expected window of 10, got %d", len(window))
	}
	if window[0].Content != "message 05" {
		t.Errorf("window should start at the 6th message, got %q", window[0].Content)
	}
	if window[9].Content != "message 14" {
		t.Errorf("window should end at the newest message, got %q", window[9].Content)
	}
}

// TestBadgerHistory_OrderingNonDecreasing tests chronological read order.
func TestBadgerHistory_OrderingNonDecreasing(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if err := h.Append(ctx, "carol", "s1", "user", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	window, err := h.ReadWindow(ctx, "carol", "s1", 20)
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	for i := 1; i < len(window); i++ {
		if window[i].Timestamp < window[i-1].Timestamp {
			t.Fatalf("timestamps decrease at index %d: %d < %d",
				i, window[i].Timestamp, window[i-1].Timestamp)
		}
	}
}

// TestBadgerHistory_SessionIsolation tests that sessions and users do not
// leak into each other's reads.
func TestBadgerHistory_SessionIsolation(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	if err := h.Append(ctx, "dora", "s1", "user", "session one"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "dora", "s2", "user", "session two"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "evan", "s1", "user", "other user"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	window, err := h.ReadWindow(ctx, "dora", "s1", 10)
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	if len(window) != 1 || window[0].Content != "session one" {
		t.Errorf("expected only session one's message, got %+v", window)
	}
}

// TestBadgerHistory_Clear tests user-wide deletion across sessions.
func TestBadgerHistory_Clear(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	if err := h.Append(ctx, "frank", "s1", "user", "one"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "frank", "s2", "user", "two"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "grace", "s1", "user", "keep me"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if ok := h.Clear(ctx, "frank"); !ok {
		t.Fatal("Clear returned false")
	}

	for _, session := range []string{"s1", "s2"} {
		window, err := h.ReadWindow(ctx, "frank", session, 10)
		if err != nil {
			t.Fatalf("ReadWindow failed: %v", err)
		}
		if len(window) != 0 {
			t.Errorf("expected empty %s after Clear, got %d messages", session, len(window))
		}
	}

	window, err := h.ReadWindow(ctx, "grace", "s1", 10)
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	if len(window) != 1 {
		t.Error("clearing one user must not touch another user's history")
	}
}

// TestBadgerHistory_Sessions tests grouping by session id.
func TestBadgerHistory_Sessions(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	if err := h.Append(ctx, "hana", "s1", "user", "q1"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "hana", "s1", "assistant", "a1"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, "hana", "s2", "user", "q2"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	sessions, err := h.Sessions(ctx, "hana")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if len(sessions["s1"]) != 2 {
		t.Errorf("Expected 2 messages in s1, got %d", len(sessions["s1"]))
	}
	if sessions["s1"][0].Content != "q1" {
		t.Errorf("s1 messages out of order: %+v", sessions["s1"])
	}
	if len(sessions["s2"]) != 1 {
		t.Errorf("Expected 1 message in s2, got %d", len(sessions["s2"]))
	}
}

// TestBadgerHistory_EmptyReads tests reads against absent users/sessions.
func TestBadgerHistory_EmptyReads(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	window, err := h.ReadWindow(ctx, "nobody", "none", 10)
	if err != nil {
		t.Fatalf("ReadWindow failed: %v", err)
	}
	if len(window) != 0 {
		t.Errorf("expected empty window, got %d", len(window))
	}

	sessions, err := h.Sessions(ctx, "nobody")
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}
