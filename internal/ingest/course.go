// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vta-dev/vta/internal/embed"
	"github.com/vta-dev/vta/internal/store"
	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

const previewLen = 200

// embedBatchSize bounds how many chunks are sent to the embedder per
// call so progress reporting stays responsive on large corpora.
const embedBatchSize = 32

// CourseOptions configures a course archive build.
type CourseOptions struct {
	// Dir is the root directory scanned for markdown files.
	Dir string
	// ArchivePath is where the embedding archive is written.
	ArchivePath string
	// MetaPath, if non-empty, receives a JSON sidecar of chunk
	// previews for debugging. The serving path never reads it.
	MetaPath string
	// ChunkSize defaults to DefaultChunkSize when zero.
	ChunkSize int
	// Progress, if non-nil, is called after each embedded batch.
	Progress func(done int)
}

// BuildCourseArchive scans opts.Dir for markdown files, cleans and
// chunks them, embeds every chunk, and writes the archive.
func BuildCourseArchive(ctx context.Context, embedder embed.Embedder, opts CourseOptions) (int, error) {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(opts.Dir, "**", "*.md"))
	if err != nil {
		return 0, vtaerr.Errorf(vtaerr.CodeIngestReadFailure, "scanning %s for markdown: %w", opts.Dir, err)
	}
	sort.Strings(matches)

	var records []store.CourseRecord
	var meta []store.ChunkMeta
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			return 0, vtaerr.Errorf(vtaerr.CodeIngestReadFailure, "reading %s: %w", path, err)
		}

		rel, err := filepath.Rel(opts.Dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		for _, chunk := range ChunkText(CleanMarkdown(string(content)), chunkSize) {
			records = append(records, store.CourseRecord{
				SourceFile: rel,
				ChunkText:  chunk,
			})
			meta = append(meta, store.ChunkMeta{
				File:    rel,
				Preview: preview(chunk),
			})
		}
	}

	slog.Info("embedding course chunks", "files", len(matches), "chunks", len(records))

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.ChunkText
	}

	embeddings, err := embedAll(ctx, embedder, texts, opts.Progress)
	if err != nil {
		return 0, err
	}

	st, err := store.New(embedder.ModelName(), embedder.Dimension(), embeddings, records)
	if err != nil {
		return 0, err
	}
	if err := st.Save(opts.ArchivePath); err != nil {
		return 0, err
	}

	if opts.MetaPath != "" {
		if err := writeMeta(opts.MetaPath, meta); err != nil {
			return 0, err
		}
	}

	return len(records), nil
}

// embedAll runs the embedder over texts in bounded batches, reporting
// cumulative progress after each one.
func embedAll(ctx context.Context, embedder embed.Embedder, texts []string, progress func(done int)) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
		if progress != nil {
			progress(end)
		}
	}
	return embeddings, nil
}

func writeMeta(path string, meta []store.ChunkMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return vtaerr.Errorf(vtaerr.CodeIngestWriteFailure, "marshalling chunk metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return vtaerr.Errorf(vtaerr.CodeIngestWriteFailure, "writing chunk metadata %s: %w", path, err)
	}
	return nil
}

// preview cuts on rune boundaries so a multi-byte character straddling
// the limit never leaves invalid UTF-8 in the sidecar.
func preview(chunk string) string {
	runes := []rune(chunk)
	if len(runes) > previewLen {
		runes = runes[:previewLen]
	}
	return strings.TrimSpace(string(runes)) + "..."
}
