// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package embed maps text to fixed-dimensionality embedding vectors.
//
// The same Embedder instance serves both index building and query-time
// embedding. That is a correctness invariant, not a convenience: any
// preprocessing drift between the vectors in a store and the query vector
// searched against it silently breaks retrieval.
package embed

import "context"

// Embedder generates vector embeddings for text. Implementations must be
// deterministic: the same text always yields the same vector.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for the given texts, one vector
	// per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
