// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package caption_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vta-dev/vta/internal/caption"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/genai"
)

// scriptedDescriber keys its behaviour on the image payload so each test
// file can fail or succeed independently.
type scriptedDescriber struct {
	results map[string]string
	errs    map[string]error
	// failures holds errors returned before succeeding, per payload.
	failures map[string][]error
	calls    map[string]int
}

func (s *scriptedDescriber) DescribeImage(_ context.Context, data []byte, _ string, _ string) (string, error) {
	key := string(data)
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	n := s.calls[key]
	s.calls[key] = n + 1

	if pending := s.failures[key]; n < len(pending) {
		return "", pending[n]
	}
	if err := s.errs[key]; err != nil {
		return "", err
	}
	return s.results[key], nil
}

func writeImage(t *testing.T, dir, name, payload string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	return path
}

func fastRetry() caption.RetryConfig {
	return caption.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestRunCaptionsAllImages(t *testing.T) {
	dir := t.TempDir()
	a := writeImage(t, dir, "a.png", "img-a")
	b := writeImage(t, dir, "b.jpg", "img-b")

	describer := &scriptedDescriber{results: map[string]string{
		"img-a": "A bar chart.",
		"img-b": "A confusion matrix.",
	}}
	cache := caption.LoadCache(filepath.Join(dir, "cache.json"))
	runner := caption.NewRunner(describer, cache, fastRetry(), nil, false)

	stats, err := runner.Run(context.Background(), []caption.Post{
		{LocalImagePaths: []string{a}},
		{LocalImagePaths: []string{b}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Captioned)

	got, ok := cache.Get(a)
	require.True(t, ok)
	assert.Equal(t, "A bar chart.", got)
}

func TestRunSkipsFailedImageAndContinues(t *testing.T) {
	dir := t.TempDir()
	bad := writeImage(t, dir, "bad.png", "img-bad")
	good := writeImage(t, dir, "good.png", "img-good")

	describer := &scriptedDescriber{
		results: map[string]string{"img-good": "A screenshot of a notebook."},
		errs:    map[string]error{"img-bad": errors.New("response blocked")},
	}
	cache := caption.LoadCache(filepath.Join(dir, "cache.json"))
	runner := caption.NewRunner(describer, cache, fastRetry(), nil, false)

	stats, err := runner.Run(context.Background(), []caption.Post{
		{LocalImagePaths: []string{bad, good}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Captioned)
	assert.Equal(t, 1, stats.Skipped)

	// The failed image records no cache entry.
	_, ok := cache.Get(bad)
	assert.False(t, ok)
	_, ok = cache.Get(good)
	assert.True(t, ok)

	// Non-rate-limit errors are permanent: exactly one attempt.
	assert.Equal(t, 1, describer.calls["img-bad"])
}

func TestRunRetriesRateLimitedCalls(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "a.png", "img-a")

	describer := &scriptedDescriber{
		results: map[string]string{"img-a": "A heatmap."},
		failures: map[string][]error{
			"img-a": {genai.APIError{Code: 429}, genai.APIError{Code: 429}},
		},
	}
	cache := caption.LoadCache(filepath.Join(dir, "cache.json"))
	runner := caption.NewRunner(describer, cache, fastRetry(), nil, false)

	stats, err := runner.Run(context.Background(), []caption.Post{{LocalImagePaths: []string{img}}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Captioned)
	assert.Equal(t, 3, describer.calls["img-a"])
}

func TestRunGivesUpAfterAttemptCeiling(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "a.png", "img-a")

	describer := &scriptedDescriber{
		errs: map[string]error{"img-a": genai.APIError{Code: 429}},
	}
	cache := caption.LoadCache(filepath.Join(dir, "cache.json"))
	runner := caption.NewRunner(describer, cache, fastRetry(), nil, false)

	stats, err := runner.Run(context.Background(), []caption.Post{{LocalImagePaths: []string{img}}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, describer.calls["img-a"])
	_, ok := cache.Get(img)
	assert.False(t, ok)
}

func TestRunSkipsUnreadableImage(t *testing.T) {
	dir := t.TempDir()
	describer := &scriptedDescriber{}
	cache := caption.LoadCache(filepath.Join(dir, "cache.json"))
	runner := caption.NewRunner(describer, cache, fastRetry(), nil, false)

	stats, err := runner.Run(context.Background(), []caption.Post{
		{LocalImagePaths: []string{filepath.Join(dir, "missing.png")}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Captioned)
}

func TestRunUsesCacheOnSecondPass(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "a.png", "img-a")

	describer := &scriptedDescriber{results: map[string]string{"img-a": "A decision tree."}}
	cache := caption.LoadCache(filepath.Join(dir, "cache.json"))
	runner := caption.NewRunner(describer, cache, fastRetry(), nil, false)

	posts := []caption.Post{{LocalImagePaths: []string{img}}}

	_, err := runner.Run(context.Background(), posts)
	require.NoError(t, err)

	stats, err := runner.Run(context.Background(), posts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Cached)
	assert.Equal(t, 1, describer.calls["img-a"])
}

func TestLoadPosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`[{"topic_id": 1, "local_image_paths": ["images/a.png"]}, {"topic_id": 2}]`,
	), 0o644))

	posts, err := caption.LoadPosts(path)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"images/a.png"}, posts[0].LocalImagePaths)
	assert.Empty(t, posts[1].LocalImagePaths)
}
