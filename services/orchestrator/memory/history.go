// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory provides durable per-(user, session) conversation history.
//
// History is stored in BadgerDB as an append-only log. Keys are laid out as
//
//	hist/<user_id>/<session_id>/<sequence>
//
// with a zero-padded monotonic sequence, so Badger's lexicographic key order
// is chronological order and reads never need to sort.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/devassist-ai/devassist/services/orchestrator/datatypes"
)

// History is the session history contract required by the chat pipeline.
//
// Append failures are non-fatal to a chat turn: callers log and continue,
// accepting that the message will not appear in future reads.
type History interface {
	Append(ctx context.Context, userID, sessionID, role, content string) error
	ReadWindow(ctx context.Context, userID, sessionID string, limit int) ([]datatypes.Message, error)
	Clear(ctx context.Context, userID string) bool
	Sessions(ctx context.Context, userID string) (map[string][]datatypes.Message, error)
}

// Config holds configuration for the Badger-backed history store.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives Badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes at the given path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: no disk, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerHistory is the embedded History implementation.
type BadgerHistory struct {
	db  *badger.DB
	seq atomic.Uint64
}

var _ History = (*BadgerHistory)(nil)

// NewBadgerHistory opens the history store.
//
// # Description
//
// Opens BadgerDB at cfg.Path (created if missing) or in memory. The append
// sequence is seeded from the wall clock so ordering survives restarts
// without persisting a counter.
//
// # Outputs
//
//   - *BadgerHistory: the opened store. Caller must Close() it.
//   - error: invalid path or database open failure.
func NewBadgerHistory(cfg Config) (*BadgerHistory, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent history")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	h := &BadgerHistory{db: db}
	h.seq.Store(uint64(time.Now().UnixNano()))
	return h, nil
}

// Close flushes and closes the underlying database.
func (h *BadgerHistory) Close() error {
	return h.db.Close()
}

func historyKey(userID, sessionID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("hist/%s/%s/%020d", userID, sessionID, seq))
}

func userPrefix(userID string) []byte {
	return []byte("hist/" + userID + "/")
}

func sessionPrefix(userID, sessionID string) []byte {
	return []byte("hist/" + userID + "/" + sessionID + "/")
}

// Append writes one message to the end of a session's log.
func (h *BadgerHistory) Append(ctx context.Context, userID, sessionID, role, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := datatypes.Message{
		Role:      role,
		Content:   content,
		Timestamp: datatypes.NowMillis(),
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal history message: %w", err)
	}

	key := historyKey(userID, sessionID, h.seq.Add(1))
	err = h.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("append history message: %w", err)
	}
	return nil
}

// ReadWindow returns at most the limit most-recent messages of a session,
// oldest first.
func (h *BadgerHistory) ReadWindow(ctx context.Context, userID, sessionID string, limit int) ([]datatypes.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	prefix := sessionPrefix(userID, sessionID)
	var window []datatypes.Message
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek point past every key in the prefix.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(window) < limit; it.Next() {
			var msg datatypes.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return fmt.Errorf("decode history message: %w", err)
			}
			window = append(window, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Collected newest first; flip to chronological order.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window, nil
}

// Clear deletes all history for a user across every session. Best effort:
// failure is logged and reported as false, never panics the caller.
func (h *BadgerHistory) Clear(ctx context.Context, userID string) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	if err := h.db.DropPrefix(userPrefix(userID)); err != nil {
		slog.Error("Failed to clear user history", "user_id", userID, "error", err)
		return false
	}
	slog.Info("User history cleared", "user_id", userID)
	return true
}

// Sessions returns every session of a user with its full ordered message
// list, keyed by session id.
func (h *BadgerHistory) Sessions(ctx context.Context, userID string) (map[string][]datatypes.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := userPrefix(userID)
	sessions := make(map[string][]datatypes.Message)
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			rest := strings.TrimPrefix(key, string(prefix))
			sessionID, _, found := strings.Cut(rest, "/")
			if !found {
				continue
			}
			var msg datatypes.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return fmt.Errorf("decode history message: %w", err)
			}
			sessions[sessionID] = append(sessions[sessionID], msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
