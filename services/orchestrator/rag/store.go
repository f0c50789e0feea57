// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultTopK is how many chunks a search returns by default.
	DefaultTopK = 3

	// ContextCharBudget bounds the combined character length of returned
	// chunks, approximating a 4,000-token budget.
	ContextCharBudget = 16000

	// hardCutoffChunks is the result size after a budget overflow. The
	// overflow policy is a hard cutoff to the two most similar chunks, not
	// a proportional shrink.
	hardCutoffChunks = 2
)

// ErrUndecodableContent is returned when ingested bytes are neither valid
// UTF-8 text nor a readable PDF.
var ErrUndecodableContent = errors.New("content is not decodable as text")

// Chunk is one retrievable unit of an ingested document.
type Chunk struct {
	ID             string
	Text           string
	OriginDocument string
}

// collection is an immutable snapshot of all chunks and their vectors.
// Mutations build a new collection and swap the live pointer, so readers
// never observe partial state.
type collection struct {
	chunks  []Chunk
	vectors [][]float32
}

// ChunkStore holds the live chunk collection. It is process-wide shared
// state: Ingest, Search and Clear are safe under concurrent use from
// different connections.
type ChunkStore struct {
	embedder Embedder
	window   int
	overlap  int

	// mu serializes writers. Readers go through live alone.
	mu   sync.Mutex
	live atomic.Pointer[collection]
}

// StoreConfig configures a ChunkStore. Zero values take defaults.
type StoreConfig struct {
	Embedder Embedder
	Window   int
	Overlap  int
}

// NewChunkStore builds an empty store. A nil embedder falls back to the
// local hashing embedder.
func NewChunkStore(cfg StoreConfig) *ChunkStore {
	if cfg.Embedder == nil {
		cfg.Embedder = HashingEmbedder{}
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultChunkWindow
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Window {
		cfg.Overlap = DefaultChunkOverlap
	}
	store := &ChunkStore{
		embedder: cfg.Embedder,
		window:   cfg.Window,
		overlap:  cfg.Overlap,
	}
	store.live.Store(&collection{})
	return store
}

// Ingest decodes a document, chunks it and adds the chunks to the live
// collection.
//
// # Description
//
// Filenames ending in .pdf go through page-wise PDF extraction; everything
// else must be valid UTF-8 text. The text is split with the sliding window
// and each chunk is embedded before insertion. Insertion builds a new
// collection snapshot, so a concurrent Search sees either none or all of
// the document's chunks.
//
// # Outputs
//
//   - int: the number of chunks created.
//   - error: ErrUndecodableContent for undecodable input, or the embedder
//     failure.
func (s *ChunkStore) Ingest(ctx context.Context, content []byte, filename string) (int, error) {
	var text string
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		extracted, err := ExtractPDFText(content)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUndecodableContent, err)
		}
		text = extracted
	} else {
		if !utf8.Valid(content) {
			return 0, fmt.Errorf("%w: %q is not valid UTF-8", ErrUndecodableContent, filename)
		}
		text = string(content)
	}

	chunkTexts := ChunkText(text, s.window, s.overlap)
	if len(chunkTexts) == 0 {
		slog.Warn("Document produced no chunks", "filename", filename)
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, chunkTexts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks for %q: %w", filename, err)
	}
	if len(vectors) != len(chunkTexts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunkTexts))
	}

	chunks := make([]Chunk, len(chunkTexts))
	for i, ct := range chunkTexts {
		chunks[i] = Chunk{
			ID:             uuid.NewString(),
			Text:           ct,
			OriginDocument: filename,
		}
	}

	s.mu.Lock()
	old := s.live.Load()
	next := &collection{
		chunks:  make([]Chunk, 0, len(old.chunks)+len(chunks)),
		vectors: make([][]float32, 0, len(old.vectors)+len(vectors)),
	}
	next.chunks = append(append(next.chunks, old.chunks...), chunks...)
	next.vectors = append(append(next.vectors, old.vectors...), vectors...)
	s.live.Store(next)
	s.mu.Unlock()

	slog.Info("Document ingested", "filename", filename, "chunks", len(chunks))
	return len(chunks), nil
}

// Search returns up to topK chunk texts ordered by decreasing similarity.
//
// # Description
//
// Embeds the query and ranks the live collection by cosine similarity.
// If the combined character length of the selected chunks exceeds the
// context budget, the result shrinks to the two most similar chunks.
// Failures are logged and produce an empty result, never an error; chat
// turns degrade to no document context rather than failing.
func (s *ChunkStore) Search(ctx context.Context, query string, topK int) []string {
	if topK <= 0 {
		topK = DefaultTopK
	}
	col := s.live.Load()
	if len(col.chunks) == 0 {
		return nil
	}

	queryVectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(queryVectors) != 1 {
		slog.Error("Query embedding failed, returning no document context", "error", err)
		return nil
	}
	queryVec := queryVectors[0]

	type scored struct {
		index int
		sim   float64
	}
	ranked := make([]scored, len(col.chunks))
	for i := range col.chunks {
		ranked[i] = scored{index: i, sim: cosineSimilarity(queryVec, col.vectors[i])}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].sim > ranked[b].sim
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	texts := make([]string, len(ranked))
	total := 0
	for i, r := range ranked {
		texts[i] = col.chunks[r.index].Text
		total += len(texts[i])
	}
	if total > ContextCharBudget && len(texts) > hardCutoffChunks {
		slog.Debug("Search result over context budget, applying hard cutoff",
			"total_chars", total, "kept", hardCutoffChunks)
		texts = texts[:hardCutoffChunks]
	}
	return texts
}

// Clear atomically replaces the live collection with an empty one. A
// concurrent Search completes against the old snapshot or sees the new
// empty one; there is no partial state.
func (s *ChunkStore) Clear() bool {
	s.mu.Lock()
	s.live.Store(&collection{})
	s.mu.Unlock()
	slog.Info("Document collection cleared")
	return true
}

// Count returns the number of chunks in the live collection.
func (s *ChunkStore) Count() int {
	return len(s.live.Load().chunks)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
