// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Counters, histograms and gauges for the chat pipeline: requests by mode,
// streamed tokens, ingestion volume, error classes and live websocket
// connections. Exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "devassist"

const chatSubsystem = "chat"

// Mode labels a chat turn's dispatch path.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeQwen   Mode = "qwen"
)

// ChatMetrics holds all Prometheus metrics for the chat pipeline.
type ChatMetrics struct {
	// TurnsTotal counts completed chat turns by mode and status.
	// Labels: mode (normal, qwen), status (success, error)
	TurnsTotal *prometheus.CounterVec

	// TokensStreamedTotal counts tokens forwarded to clients.
	// Labels: mode
	TokensStreamedTotal *prometheus.CounterVec

	// TurnDurationSeconds measures full turn duration.
	// Labels: mode, status
	TurnDurationSeconds *prometheus.HistogramVec

	// ActiveConnections tracks live websocket chat connections.
	ActiveConnections prometheus.Gauge

	// ErrorsTotal counts provider failures by class.
	// Labels: class (rate_limited, bad_request, unknown)
	ErrorsTotal *prometheus.CounterVec

	// ChunksIngestedTotal counts chunks added to the document store.
	ChunksIngestedTotal prometheus.Counter

	// SearchesTotal counts similarity searches against the store.
	SearchesTotal prometheus.Counter

	// ClientDisconnectsTotal counts clients dropping mid-stream.
	ClientDisconnectsTotal prometheus.Counter
}

// DefaultMetrics is the process-wide metrics instance, set by InitMetrics.
var DefaultMetrics *ChatMetrics

// InitMetrics registers the chat metrics on the default registry. Call once
// at startup; a second call panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics registers the chat metrics on the given registerer. Tests pass
// their own registry to avoid duplicate registration across cases.
func NewMetrics(reg prometheus.Registerer) *ChatMetrics {
	factory := promauto.With(reg)
	return &ChatMetrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turns_total",
				Help:      "Total chat turns by dispatch mode and status",
			},
			[]string{"mode", "status"},
		),

		TokensStreamedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "tokens_streamed_total",
				Help:      "Total tokens forwarded to chat clients",
			},
			[]string{"mode"},
		),

		TurnDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "Full chat turn duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode", "status"},
		),

		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_connections",
				Help:      "Number of live websocket chat connections",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total provider failures by error class",
			},
			[]string{"class"},
		),

		ChunksIngestedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "documents",
				Name:      "chunks_ingested_total",
				Help:      "Total chunks added to the document store",
			},
		),

		SearchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "documents",
				Name:      "searches_total",
				Help:      "Total similarity searches against the document store",
			},
		),

		ClientDisconnectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total clients that dropped mid-stream",
			},
		),
	}
}

// RecordTurn records a completed chat turn.
func (m *ChatMetrics) RecordTurn(mode Mode, success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	m.TurnsTotal.WithLabelValues(string(mode), status).Inc()
	m.TurnDurationSeconds.WithLabelValues(string(mode), status).Observe(seconds)
}

// RecordTokens adds to the streamed token count for a mode.
func (m *ChatMetrics) RecordTokens(mode Mode, count int) {
	m.TokensStreamedTotal.WithLabelValues(string(mode)).Add(float64(count))
}

// RecordErrorClass records one classified provider failure.
func (m *ChatMetrics) RecordErrorClass(class string) {
	m.ErrorsTotal.WithLabelValues(class).Inc()
}

// ConnectionOpened increments the live connection gauge.
func (m *ChatMetrics) ConnectionOpened() {
	m.ActiveConnections.Inc()
}

// ConnectionClosed decrements the live connection gauge.
func (m *ChatMetrics) ConnectionClosed() {
	m.ActiveConnections.Dec()
}
