// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanMarkdown(t *testing.T) {
	in := "# Title\n![](image.png)\nSome text.\n  ![](other.webp)\n![alt text](kept.png)\n"
	out := CleanMarkdown(in)

	assert.NotContains(t, out, "image.png")
	assert.NotContains(t, out, "other.webp")
	// Image references with alt text survive.
	assert.Contains(t, out, "![alt text](kept.png)")
	assert.Contains(t, out, "Some text.")
}

func TestChunkTextRespectsSentenceBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here. Fourth sentence here."
	chunks := ChunkText(text, 50)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// Chunks never end mid-sentence.
		assert.False(t, strings.HasSuffix(chunk, " here"), "chunk %q cut mid-sentence", chunk)
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("Just one short sentence.", 500)
	assert.Equal(t, []string{"Just one short sentence."}, chunks)
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Empty(t, ChunkText("", 500))
	assert.Empty(t, ChunkText("   ", 500))
}

func TestChunkTextOversizedSentence(t *testing.T) {
	long := strings.Repeat("x", 800)
	chunks := ChunkText(long+". Short one.", 500)

	assert.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0], "xxx"))
}

func TestChunkTextCoversAllSentences(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Sentence number something goes right here. ")
	}
	chunks := ChunkText(sb.String(), DefaultChunkSize)

	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), DefaultChunkSize+len("Sentence number something goes right here. "))
		total += strings.Count(chunk, "Sentence number")
	}
	assert.Equal(t, 40, total)
}
