// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import "context"

// Retriever wraps the chunk store behind the retrieval policy seam. The
// token-budget policy can evolve here without touching storage.
type Retriever struct {
	store *ChunkStore
	topK  int
}

func NewRetriever(store *ChunkStore) *Retriever {
	return &Retriever{store: store, topK: DefaultTopK}
}

// Retrieve returns document context for a query. Empty on any failure.
func (r *Retriever) Retrieve(ctx context.Context, query string) []string {
	return r.store.Search(ctx, query, r.topK)
}
