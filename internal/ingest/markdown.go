// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package ingest builds the embedding archives consumed by the answer
// service: course-material chunks from markdown files and forum posts
// from the scraped Discourse export.
package ingest

import "strings"

// DefaultChunkSize is the character budget for a course-material chunk.
const DefaultChunkSize = 500

// CleanMarkdown drops bare image reference lines (those starting with
// "![]") so captionless images never pollute the embedded text.
func CleanMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "![]") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// ChunkText splits text into chunks of at most roughly maxLen
// characters, breaking only at sentence boundaries (". "). A single
// sentence longer than maxLen becomes its own oversized chunk rather
// than being split mid-sentence.
func ChunkText(text string, maxLen int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sentences := strings.Split(text, ". ")

	var chunks []string
	var current strings.Builder
	for _, s := range sentences {
		if current.Len()+len(s) < maxLen {
			current.WriteString(s)
			current.WriteString(". ")
			continue
		}
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current.Reset()
		current.WriteString(s)
		current.WriteString(". ")
	}
	if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}
