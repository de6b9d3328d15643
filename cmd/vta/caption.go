// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vta-dev/vta/internal/caption"
	"github.com/vta-dev/vta/internal/gemini"
)

func newCaptionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "caption <posts.json>",
		Short: "Caption forum post images offline",
		Long:  "Describe every downloaded forum image with the generative model, caching captions so the batch can resume after interruption.",
		Args:  cobra.ExactArgs(1),
		RunE:  runCaption,
	}
}

func runCaption(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	posts, err := caption.LoadPosts(args[0])
	if err != nil {
		return err
	}

	client, err := gemini.New(cmd.Context(), gemini.Config{
		APIKey:       cfg.Gemini.APIKey,
		Model:        cfg.Gemini.Model,
		CaptionModel: cfg.Gemini.CaptionModel,
	})
	if err != nil {
		return err
	}

	cache := caption.LoadCache(cfg.Captions.Cache)
	slog.Info("caption cache loaded", "path", cfg.Captions.Cache, "entries", cache.Size())

	retry := caption.DefaultRetryConfig()
	retry.MaxAttempts = uint64(cfg.Captions.MaxAttempts)

	runner := caption.NewRunner(client, cache, retry, slog.Default(), true)
	stats, err := runner.Run(cmd.Context(), posts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "captioned %d images (%d cached, %d skipped)\n",
		stats.Captioned, stats.Cached, stats.Skipped)
	return nil
}
