// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package search implements nearest-neighbor retrieval over a loaded
// embedding store. Similarity is computed against every vector in the
// store: corpora are bounded to tens of thousands of entries and queries
// arrive per request, so a brute-force scan is the deliberate tradeoff.
// An ANN index could replace TopK behind the same contract if corpora
// ever outgrow that.
package search

import (
	"math"
	"sort"
)

// Result is one retrieved entry: the store position and its cosine
// similarity to the query.
type Result struct {
	Index int
	Score float64
}

// Cosine computes the cosine similarity between two vectors. It returns 0
// when either vector has zero norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
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

// Vectors is the read-only view of a store that TopK scans. Both corpus
// stores satisfy it.
type Vectors interface {
	Size() int
	Vector(i int) []float32
}

// TopK returns the k entries most similar to query, sorted by descending
// similarity with ties broken by store order. k = 0 yields an empty
// result; k larger than the store yields the whole store. An empty store
// yields an empty result, which callers tolerate.
func TopK(query []float32, vs Vectors, k int) []Result {
	if k < 0 {
		k = 0
	}

	n := vs.Size()
	results := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, Result{Index: i, Score: Cosine(query, vs.Vector(i))})
	}

	// Stable sort keeps store order among equal scores, so repeated
	// queries return identical orderings.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}

	return results
}
