// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator provides the core DevAssist backend service.
//
// The orchestrator coordinates every component of a chat turn: document
// ingestion and retrieval, conversation memory, web research, context
// assembly, streaming LLM providers, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 8000, LLMBackend: "ollama"}
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/devassist-ai/devassist/services/llm"
	"github.com/devassist-ai/devassist/services/orchestrator/handlers"
	"github.com/devassist-ai/devassist/services/orchestrator/memory"
	"github.com/devassist-ai/devassist/services/orchestrator/observability"
	"github.com/devassist-ai/devassist/services/orchestrator/rag"
	"github.com/devassist-ai/devassist/services/orchestrator/routes"
	"github.com/devassist-ai/devassist/services/qwen"
	"github.com/devassist-ai/devassist/services/research"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the orchestrator lifecycle contract.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration options. All fields are
// optional; New applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 8000
	Port int

	// LLMBackend selects the streaming provider.
	// Valid values: "ollama", "openai". Default: "ollama"
	LLMBackend string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "devassist-otel-collector:4317"
	OTelEndpoint string

	// HistoryPath is the Badger directory for conversation memory.
	// Default: "./data/history". Ignored when HistoryInMemory is set.
	HistoryPath string

	// HistoryInMemory keeps conversation memory off disk. Used by tests
	// and throwaway deployments.
	HistoryInMemory bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service wires the production component graph behind Service.
type service struct {
	config        Config
	router        *gin.Engine
	llmClient     llm.LLMClient
	qwenProvider  qwen.Provider
	researcher    research.Researcher
	store         *rag.ChunkStore
	history       *memory.BadgerHistory
	metrics       *observability.ChatMetrics
	tracerCleanup func(context.Context)
}

// New creates a ready-to-run orchestrator Service.
//
// # Description
//
// Initialization order: defaults, tracing, metrics, conversation
// memory, the chunk store, sidecar clients, the LLM client, then the
// HTTP router. Any failure after the history store opens releases the
// partially built resources before returning.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run orchestrator service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	observability.InitMetrics()
	s.metrics = observability.DefaultMetrics

	if err := s.initHistory(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize conversation memory: %w", err)
	}

	s.initStore()
	s.initSidecars()

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.initRouter()
	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting orchestrator server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "devassist-otel-collector:4317"
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = "./data/history"
	}
	return cfg
}

// initTracer sets up the OTLP trace exporter against the configured
// collector. Uses an insecure gRPC connection, appropriate for the
// internal compose network.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("orchestrator-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

func (s *service) initHistory() error {
	var cfg memory.Config
	if s.config.HistoryInMemory {
		cfg = memory.InMemoryConfig()
	} else {
		cfg = memory.DefaultConfig(s.config.HistoryPath)
	}

	history, err := memory.NewBadgerHistory(cfg)
	if err != nil {
		return err
	}
	s.history = history
	slog.Info("Conversation memory initialized",
		"path", s.config.HistoryPath, "in_memory", s.config.HistoryInMemory)
	return nil
}

func (s *service) initStore() {
	var embedder rag.Embedder
	if svcEmbedder, err := rag.NewServiceEmbedder(); err != nil {
		slog.Info("Embedding sidecar not configured, using local hashing embedder",
			"reason", err)
	} else {
		embedder = svcEmbedder
		slog.Info("Using embedding sidecar")
	}
	s.store = rag.NewChunkStore(rag.StoreConfig{Embedder: embedder})
}

// initSidecars wires the optional Qwen and research sidecars. A missing
// sidecar disables its feature rather than failing startup; the chat
// loop degrades per turn.
func (s *service) initSidecars() {
	if provider, err := qwen.NewHTTPProvider(); err != nil {
		slog.Warn("Qwen sidecar not configured, alternate provider disabled", "reason", err)
	} else {
		s.qwenProvider = provider
	}

	if researcher, err := research.NewHTTPResearcher(); err != nil {
		slog.Warn("Research sidecar not configured, web search disabled", "reason", err)
	} else {
		s.researcher = researcher
	}
}

func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to ollama", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewOllamaClient()
	}

	return err
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("orchestrator-service"))

	deps := handlers.ChatDeps{
		Retriever:  rag.NewRetriever(s.store),
		History:    s.history,
		LLM:        s.llmClient,
		Qwen:       s.qwenProvider,
		Researcher: s.researcher,
		Metrics:    s.metrics,
	}
	routes.SetupRoutes(s.router, deps, s.store, research.NewToolbox(s.researcher))
}

// cleanup releases all resources held by the service. Called when
// Run() exits or on initialization failure.
func (s *service) cleanup() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			slog.Warn("History store close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
