// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package embed

import (
	"context"
	"hash/fnv"
	"strings"
)

// Mock is a deterministic bag-of-words embedder for tests: each lowercased
// word is hashed into a dimension bucket, so texts sharing words get high
// cosine similarity without any model files.
type Mock struct {
	dimension int
}

var _ Embedder = (*Mock)(nil)

func NewMock(dimension int) *Mock {
	return &Mock{dimension: dimension}
}

func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, m.dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%m.dimension]++
	}
	return vec, nil
}

func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

func (m *Mock) Dimension() int {
	return m.dimension
}

func (m *Mock) ModelName() string {
	return "mock"
}
