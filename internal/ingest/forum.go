// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/vta-dev/vta/internal/embed"
	"github.com/vta-dev/vta/internal/store"
	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// ForumPost is one entry of the scraped Discourse export, after the
// captioning batch has merged image captions in.
type ForumPost struct {
	TopicID                int64    `json:"topic_id"`
	Title                  string   `json:"title"`
	Username               string   `json:"username"`
	CreatedAt              string   `json:"created_at"`
	CookedHTML             string   `json:"cooked_html"`
	CookedHTMLWithCaptions string   `json:"cooked_html_with_captions,omitempty"`
	ImageCaptions          []string `json:"image_captions,omitempty"`
}

// Text returns the embeddable text for a post: the caption-merged body
// when present, otherwise the raw body with captions appended.
func (p ForumPost) Text() string {
	if merged := strings.TrimSpace(p.CookedHTMLWithCaptions); merged != "" {
		return merged
	}
	text := strings.TrimSpace(p.CookedHTML)
	if captions := strings.TrimSpace(strings.Join(p.ImageCaptions, "\n")); captions != "" {
		text += "\n" + captions
	}
	return text
}

// ForumOptions configures a forum archive build.
type ForumOptions struct {
	// PostsPath is the caption-merged posts JSON.
	PostsPath string
	// ArchivePath is where the embedding archive is written.
	ArchivePath string
	// Progress, if non-nil, is called after each embedded batch.
	Progress func(done int)
}

// BuildForumArchive embeds every non-empty post from the export and
// writes the forum archive. Posts with no text are dropped.
func BuildForumArchive(ctx context.Context, embedder embed.Embedder, opts ForumOptions) (int, error) {
	data, err := os.ReadFile(opts.PostsPath)
	if err != nil {
		return 0, vtaerr.Errorf(vtaerr.CodeIngestReadFailure, "reading posts %s: %w", opts.PostsPath, err)
	}

	var posts []ForumPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return 0, vtaerr.Errorf(vtaerr.CodeIngestParseInvalid, "parsing posts %s: %w", opts.PostsPath, err)
	}

	var records []store.ForumRecord
	var texts []string
	for _, post := range posts {
		text := post.Text()
		if text == "" {
			continue
		}
		records = append(records, store.ForumRecord{
			TopicID:   post.TopicID,
			Title:     post.Title,
			Username:  post.Username,
			CreatedAt: post.CreatedAt,
			Text:      text,
		})
		texts = append(texts, text)
	}

	slog.Info("embedding forum posts", "posts", len(posts), "embedded", len(records))

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

	return len(records), nil
}
