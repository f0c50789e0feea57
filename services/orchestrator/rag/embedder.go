// Copyright (C) 2025 DevAssist AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"
)

// Embedder turns texts into fixed-dimension vectors. Search only relies on
// the scheme being consistent: the same embedder must produce comparable
// vectors for documents and queries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ===== Service Embedder =====

// ServiceEmbedder calls the batch embedding sidecar. The sidecar exposes a
// /batch_embed endpoint taking {"texts": [...]} and returning
// {"vectors": [[...], ...]}.
type ServiceEmbedder struct {
	httpClient *http.Client
	embedURL   string
}

var _ Embedder = (*ServiceEmbedder)(nil)

type batchEmbeddingRequest struct {
	Texts []string `json:"texts"`
}

type batchEmbeddingResponse struct {
	Vectors [][]float32 `json:"vectors"`
}

// NewServiceEmbedder builds an embedder from EMBEDDING_SERVICE_URL.
func NewServiceEmbedder() (*ServiceEmbedder, error) {
	baseURL := os.Getenv("EMBEDDING_SERVICE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("EMBEDDING_SERVICE_URL environment variable not set")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &ServiceEmbedder{
		// Batch embedding of a large document can take a while.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		embedURL:   baseURL + "/batch_embed",
	}, nil
}

func (s *ServiceEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(batchEmbeddingRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.embedURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create batch embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call /batch_embed endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read /batch_embed response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("/batch_embed returned status %d: %s", resp.StatusCode, string(body))
	}

	var batchResp batchEmbeddingResponse
	if err = json.Unmarshal(body, &batchResp); err != nil {
		return nil, fmt.Errorf("failed to decode batch embed response: %w", err)
	}
	if len(batchResp.Vectors) != len(texts) {
		return nil, fmt.Errorf("/batch_embed returned %d vectors for %d texts",
			len(batchResp.Vectors), len(texts))
	}
	return batchResp.Vectors, nil
}

// ===== Hashing Embedder =====

// HashingEmbedderDim is the vector dimension of the local embedder.
const HashingEmbedderDim = 256

// HashingEmbedder is a deterministic local embedder: a hashed bag-of-words
// with L2 normalization. It needs no external service and gives texts that
// share vocabulary a higher cosine similarity, which is enough for the
// search ordering and truncation contracts. Deployments wanting semantic
// quality configure a ServiceEmbedder instead.
type HashingEmbedder struct{}

var _ Embedder = (*HashingEmbedder)(nil)

func (HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashEmbed(text)
	}
	return vectors, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, HashingEmbedderDim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%HashingEmbedderDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
