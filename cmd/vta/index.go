// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/vta-dev/vta/internal/ingest"
	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build embedding archives",
		Long:  "Embed course markdown or caption-merged forum posts into the archives the server loads at startup.",
	}

	cmd.AddCommand(newIndexCourseCmd(), newIndexForumCmd())
	return cmd
}

func newIndexCourseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "course <markdown-dir>",
		Short: "Embed course markdown into the course archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexCourse,
	}

	cmd.Flags().Int("chunk-size", ingest.DefaultChunkSize, "chunk character budget")
	return cmd
}

func runIndexCourse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	chunkSize, err := cmd.Flags().GetInt("chunk-size")
	if err != nil {
		return vtaerr.Errorf(vtaerr.CodeCLISetupFailure, "reading chunk-size flag: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	bar := progressbar.Default(-1, "embedding course chunks")
	n, err := ingest.BuildCourseArchive(cmd.Context(), embedder, ingest.CourseOptions{
		Dir:         args[0],
		ArchivePath: cfg.Stores.Course,
		MetaPath:    cfg.Stores.CourseMeta,
		ChunkSize:   chunkSize,
		Progress:    func(done int) { _ = bar.Set(done) },
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Fprintf(cmd.OutOrStdout(), "embedded %d chunks into %s\n", n, cfg.Stores.Course)
	return nil
}

func newIndexForumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forum <posts.json>",
		Short: "Embed caption-merged forum posts into the forum archive",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexForum,
	}
}

func runIndexForum(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	bar := progressbar.Default(-1, "embedding forum posts")
	n, err := ingest.BuildForumArchive(cmd.Context(), embedder, ingest.ForumOptions{
		PostsPath:   args[0],
		ArchivePath: cfg.Stores.Forum,
		Progress:    func(done int) { _ = bar.Set(done) },
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Fprintf(cmd.OutOrStdout(), "embedded %d posts into %s\n", n, cfg.Stores.Forum)
	return nil
}
