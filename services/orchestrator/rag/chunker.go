// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rag implements the document chunk store: sliding-window chunking,
// embedding, similarity search and atomic reset of the live collection.
package rag

const (
	// DefaultChunkWindow is the chunk size in characters.
	DefaultChunkWindow = 500

	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 50
)

// ChunkText splits text into overlapping fixed-size windows.
//
// # Description
//
// Every chunk is exactly window characters long except the last, and
// consecutive chunks start window-overlap characters apart. Splitting is
// rune-based so multi-byte characters never straddle a chunk boundary.
//
// # Inputs
//
//   - text: the document text. Empty text yields no chunks.
//   - window: chunk size, must be > overlap.
//   - overlap: shared suffix/prefix length, must be >= 0.
//
// # Outputs
//
//   - []string: the chunks in document order. nil when the parameters are
//     out of range.
func ChunkText(text string, window, overlap int) []string {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := window - overlap
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + window
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
