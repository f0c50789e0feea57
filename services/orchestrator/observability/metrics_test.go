// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics creates a ChatMetrics instance on an isolated registry so
// tests can run in parallel without duplicate registration.
func newTestMetrics(t *testing.T) *ChatMetrics {
	t.Helper()
	return NewMetrics(prometheus.NewRegistry())
}

// TestRecordTurn tests turn counting by mode and status.
func TestRecordTurn(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordTurn(ModeNormal, true, 1.5)
	m.RecordTurn(ModeNormal, true, 2.0)
	m.RecordTurn(ModeQwen, false, 0.5)

	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("normal", "success")); got != 2 {
		t.Errorf("Expected 2 successful normal turns, got %f", got)
	}
	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("qwen", "error")); got != 1 {
		t.Errorf("Expected 1 failed qwen turn, got %f", got)
	}
}

// TestRecordTokens tests token accumulation.
func TestRecordTokens(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordTokens(ModeNormal, 10)
	m.RecordTokens(ModeNormal, 5)

	if got := testutil.ToFloat64(m.TokensStreamedTotal.WithLabelValues("normal")); got != 15 {
		t.Errorf("Expected 15 tokens, got %f", got)
	}
}

// TestConnectionGauge tests the open/close pairing.
func TestConnectionGauge(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	if got := testutil.ToFloat64(m.ActiveConnections); got != 1 {
		t.Errorf("Expected 1 active connection, got %f", got)
	}
}

// TestRecordErrorClass tests error class labeling.
func TestRecordErrorClass(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	m.RecordErrorClass("rate_limited")
	m.RecordErrorClass("rate_limited")
	m.RecordErrorClass("unknown")

	if got := testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("rate_limited")); got != 2 {
		t.Errorf("Expected 2 rate_limited errors, got %f", got)
	}
}
