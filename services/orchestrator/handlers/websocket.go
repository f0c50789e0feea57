// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/devassist-ai/devassist/services/llm"
	"github.com/devassist-ai/devassist/services/orchestrator/assembler"
	"github.com/devassist-ai/devassist/services/orchestrator/datatypes"
	"github.com/devassist-ai/devassist/services/orchestrator/memory"
	"github.com/devassist-ai/devassist/services/orchestrator/observability"
	"github.com/devassist-ai/devassist/services/orchestrator/rag"
	"github.com/devassist-ai/devassist/services/qwen"
	"github.com/devassist-ai/devassist/services/research"
)

// HistoryWindow is how many stored messages are read back per turn. The
// most recent entry is the user message just persisted for this turn, so
// it is dropped before prompt assembly.
const HistoryWindow = 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

// ChatDeps carries everything the websocket chat loop needs.
type ChatDeps struct {
	Retriever  *rag.Retriever
	History    memory.History
	LLM        llm.LLMClient
	Qwen       qwen.Provider
	Researcher research.Researcher
	Metrics    *observability.ChatMetrics
}

func sendFrame(ws *websocket.Conn, frame datatypes.StreamFrame) error {
	err := ws.WriteJSON(frame)
	if err != nil {
		slog.Warn("Failed to write WebSocket frame", "error", err)
	}
	return err
}

// streamText re-streams already-complete text as token frames, one rune
// at a time, so pre-generated answers render like live model output.
func streamText(ws *websocket.Conn, sessionID, text string) error {
	for _, r := range text {
		if err := sendFrame(ws, datatypes.TokenFrame(string(r), sessionID)); err != nil {
			return err
		}
	}
	return nil
}

// HandleChatWebSocket runs the connection-scoped chat loop.
//
// # Description
//
// Each inbound message is one chat turn. A turn either goes through the
// Qwen sidecar (alternate provider) or the normal pipeline: optional
// parallel web search plus document retrieval, context assembly, then a
// streamed LLM completion. Session identity is sticky per connection:
// the first turn without a session_id mints one and every later bare
// turn reuses it.
//
// # Limitations
//
// Turns on one connection run sequentially. A slow provider blocks
// later messages queued on the same socket.
func HandleChatWebSocket(deps ChatDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		deps.Metrics.ConnectionOpened()
		defer deps.Metrics.ConnectionClosed()
		slog.Info("Websocket client connected")

		// Minted lazily on the first turn that arrives without a
		// session_id, then reused for the connection's lifetime.
		connSessionID := ""

		for {
			var req datatypes.ChatRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}

			if err := req.Validate(); err != nil {
				slog.Warn("Rejected invalid chat request", "error", err)
				if sendFrame(ws, datatypes.ErrorFrame("Invalid request: "+err.Error())) != nil {
					return
				}
				continue
			}

			sessionID := req.SessionID
			if sessionID == "" {
				if connSessionID == "" {
					connSessionID = datatypes.NewSessionID()
					slog.Info("New websocket session started", "sessionID", connSessionID)
				}
				sessionID = connSessionID
			}

			ctx := c.Request.Context()

			// The user message is persisted before dispatch so history
			// survives a failed generation. A storage error degrades to
			// a turn without memory, not a failed turn.
			if err := deps.History.Append(ctx, req.UserID, sessionID, datatypes.RoleUser, req.Message); err != nil {
				slog.Error("Failed to persist user message", "sessionID", sessionID, "error", err)
			}

			start := time.Now()
			if req.AlternateProviderEnabled {
				ok := runQwenTurn(ctx, ws, deps, req, sessionID)
				deps.Metrics.RecordTurn(observability.ModeQwen, ok, time.Since(start).Seconds())
			} else {
				ok := runNormalTurn(ctx, ws, deps, req, sessionID)
				deps.Metrics.RecordTurn(observability.ModeNormal, ok, time.Since(start).Seconds())
			}
		}
	}
}

// runQwenTurn answers one turn through the Qwen sidecar. The sidecar
// returns a complete answer which is re-streamed to the client.
func runQwenTurn(ctx context.Context, ws *websocket.Conn, deps ChatDeps,
	req datatypes.ChatRequest, sessionID string) bool {

	if deps.Qwen == nil {
		sendFrame(ws, datatypes.ErrorFrame("Error: The alternate provider is not configured"))
		return false
	}

	answer, err := deps.Qwen.Answer(ctx, req.Message)
	if err != nil {
		slog.Error("Qwen provider failed", "sessionID", sessionID, "error", err)
		sendFrame(ws, datatypes.ErrorFrame(llm.UserMessage(err)))
		return false
	}
	if strings.TrimSpace(answer.Content) == "" {
		slog.Warn("Qwen provider returned empty content", "sessionID", sessionID)
		sendFrame(ws, datatypes.ErrorFrame("Error: The alternate provider returned an empty response"))
		return false
	}

	if err := streamText(ws, sessionID, answer.Content); err != nil {
		deps.Metrics.ClientDisconnectsTotal.Inc()
		return false
	}
	deps.Metrics.RecordTokens(observability.ModeQwen, len([]rune(answer.Content)))

	if err := deps.History.Append(ctx, req.UserID, sessionID, datatypes.RoleAssistant, answer.Content); err != nil {
		slog.Error("Failed to persist assistant message", "sessionID", sessionID, "error", err)
	}
	return sendFrame(ws, datatypes.DoneFrame(sessionID, false, 0, true)) == nil
}

// runNormalTurn answers one turn through the retrieval + streaming LLM
// pipeline.
func runNormalTurn(ctx context.Context, ws *websocket.Conn, deps ChatDeps,
	req datatypes.ChatRequest, sessionID string) bool {

	var webResults []research.Result
	var docChunks []string

	useWeb := req.WebSearchEnabled && deps.Researcher != nil &&
		research.IsProgrammingQuery(req.Message)
	if useWeb {
		if sendFrame(ws, datatypes.StatusFrame(datatypes.StatusSearching,
			"Searching the web for current information...", sessionID)) != nil {
			deps.Metrics.ClientDisconnectsTotal.Inc()
			return false
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			results, err := deps.Researcher.Search(gctx, req.Message)
			if err != nil {
				// Web search is best effort. The turn proceeds on
				// documents and history alone.
				slog.Warn("Web search failed", "sessionID", sessionID, "error", err)
				return nil
			}
			webResults = results
			return nil
		})
		g.Go(func() error {
			docChunks = deps.Retriever.Retrieve(gctx, req.Message)
			return nil
		})
		_ = g.Wait()
	} else {
		docChunks = deps.Retriever.Retrieve(ctx, req.Message)
	}
	deps.Metrics.SearchesTotal.Inc()

	bundle := assembler.Assemble(webResults, docChunks)

	history, err := deps.History.ReadWindow(ctx, req.UserID, sessionID, HistoryWindow)
	if err != nil {
		slog.Error("Failed to read conversation history", "sessionID", sessionID, "error", err)
		history = nil
	}
	if n := len(history); n > 0 {
		// Drop the user message appended at dispatch; it is re-added as
		// the live turn below.
		history = history[:n-1]
	}
	messages := assembler.BuildMessages(bundle, history, req.Message)

	temperature := float32(0.7)
	maxTokens := 2048
	params := llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tokens := make(chan string, 32)
	genErr := make(chan error, 1)
	go func() {
		defer close(tokens)
		genErr <- deps.LLM.ChatStream(genCtx, messages, params, func(ev llm.StreamEvent) error {
			if ev.Type != llm.StreamEventToken || ev.Content == "" {
				return nil
			}
			select {
			case tokens <- ev.Content:
				return nil
			case <-genCtx.Done():
				return genCtx.Err()
			}
		})
	}()

	var answer strings.Builder
	tokenCount := 0
	writeFailed := false
	for tok := range tokens {
		if writeFailed {
			continue // drain until the generator notices cancellation
		}
		if sendFrame(ws, datatypes.TokenFrame(tok, sessionID)) != nil {
			writeFailed = true
			cancel()
			continue
		}
		answer.WriteString(tok)
		tokenCount++
	}
	streamErr := <-genErr

	if writeFailed {
		deps.Metrics.ClientDisconnectsTotal.Inc()
		return false
	}
	if streamErr != nil {
		class := llm.Classify(streamErr)
		deps.Metrics.RecordErrorClass(class.String())
		slog.Error("LLM stream failed", "sessionID", sessionID,
			"class", class.String(), "error", streamErr)
		sendFrame(ws, datatypes.ErrorFrame(llm.UserMessage(streamErr)))
		return false
	}

	deps.Metrics.RecordTokens(observability.ModeNormal, tokenCount)

	finalAnswer := answer.String()
	if len(webResults) > 0 {
		footer := assembler.SourcesFooter(webResults)
		if err := streamText(ws, sessionID, footer); err != nil {
			deps.Metrics.ClientDisconnectsTotal.Inc()
			return false
		}
		finalAnswer += footer
	}

	if err := deps.History.Append(ctx, req.UserID, sessionID, datatypes.RoleAssistant, finalAnswer); err != nil {
		slog.Error("Failed to persist assistant message", "sessionID", sessionID, "error", err)
	}
	return sendFrame(ws, datatypes.DoneFrame(sessionID, len(webResults) > 0, len(webResults), false)) == nil
}
