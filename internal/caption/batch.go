// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package caption

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/schollz/progressbar/v3"

	"github.com/vta-dev/vta/internal/gemini"
	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// batchInstruction is the fixed prompt used when precomputing corpus
// captions offline.
const batchInstruction = "Describe this image in detail:"

// Post is the slice of the crawler's post JSON the batch captioner needs:
// the local paths of the images downloaded for each post.
type Post struct {
	LocalImagePaths []string `json:"local_image_paths"`
}

// LoadPosts reads the crawler's posts file.
func LoadPosts(path string) ([]Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeIngestReadFailure, "reading posts file", vtaerr.FieldPath(path))
	}

	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeIngestParseInvalid, "parsing posts file", vtaerr.FieldPath(path))
	}

	return posts, nil
}

// RetryConfig bounds the retry loop for rate-limited caption calls.
type RetryConfig struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
	}
}

// Stats summarizes a batch captioning run.
type Stats struct {
	Captioned int
	Cached    int
	Skipped   int
}

// Runner precomputes captions for every corpus image, caching by file
// path. Rate-limit-class failures are retried with exponential backoff and
// jitter up to the attempt ceiling; any other failure logs and skips the
// image. A failed image records no cache entry and never aborts the run.
type Runner struct {
	describer Describer
	cache     *Cache
	retry     RetryConfig
	logger    *slog.Logger
	progress  bool
}

func NewRunner(describer Describer, cache *Cache, retry RetryConfig, logger *slog.Logger, progress bool) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = 1
	}
	return &Runner{
		describer: describer,
		cache:     cache,
		retry:     retry,
		logger:    logger,
		progress:  progress,
	}
}

// Run captions every image referenced by posts.
func (r *Runner) Run(ctx context.Context, posts []Post) (Stats, error) {
	var paths []string
	for _, p := range posts {
		paths = append(paths, p.LocalImagePaths...)
	}

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.Default(int64(len(paths)), "captioning")
	}

	var stats Stats
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return stats, vtaerr.Wrap(err, vtaerr.CodeCLISetupFailure, "captioning cancelled")
		}

		r.captionOne(ctx, path, &stats)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	return stats, nil
}

func (r *Runner) captionOne(ctx context.Context, path string, stats *Stats) {
	if _, ok := r.cache.Get(path); ok {
		stats.Cached++
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("could not read image, skipping", "path", path, "error", err)
		stats.Skipped++
		return
	}

	caption, err := r.describeWithRetry(ctx, data, mimeTypeFor(path, data))
	if err != nil {
		r.logger.Warn("caption generation failed, skipping image", "path", path, "error", err)
		stats.Skipped++
		return
	}

	if err := r.cache.Put(path, caption); err != nil {
		// The caption is lost but the batch carries on; the next run
		// regenerates it.
		r.logger.Warn("persisting caption failed", "path", path, "error", err)
		stats.Skipped++
		return
	}

	stats.Captioned++
}

// describeWithRetry retries only rate-limit-class errors; everything else
// is permanent for this image.
func (r *Runner) describeWithRetry(ctx context.Context, data []byte, mimeType string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.retry.InitialInterval
	bo.MaxInterval = r.retry.MaxInterval
	bo.MaxElapsedTime = 0

	var caption string
	op := func() error {
		var err error
		caption, err = r.describer.DescribeImage(ctx, data, mimeType, batchInstruction)
		if err == nil {
			return nil
		}
		if gemini.IsRateLimited(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.retry.MaxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}

	return caption, nil
}

func mimeTypeFor(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return http.DetectContentType(data)
	}
}
