// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/vta-dev/vta/internal/assist"
	"github.com/vta-dev/vta/internal/caption"
	"github.com/vta-dev/vta/internal/config"
	"github.com/vta-dev/vta/internal/embed"
	"github.com/vta-dev/vta/internal/gemini"
	"github.com/vta-dev/vta/internal/server"
	"github.com/vta-dev/vta/internal/store"
	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// App holds all wired subsystems for the serving path.
type App struct {
	Server   *server.Server
	Embedder *embed.MiniLM
	Service  *assist.Service
}

// Close releases the embedding session.
func (a *App) Close() error {
	return a.Embedder.Close()
}

// WireApp loads the embedding stores, the local embedder, and the
// remote model client, and assembles the HTTP server. Any failure here
// is fatal: the service never starts with partial retrieval state.
func WireApp(ctx context.Context, cfg *config.Config) (*App, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	forum, err := store.LoadForum(cfg.Stores.Forum)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	course, err := store.LoadCourse(cfg.Stores.Course)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	slog.Info("embedding stores loaded",
		"forum_posts", forum.Size(),
		"course_chunks", course.Size(),
		"dimension", course.Dimension())

	if forum.Dimension() != embedder.Dimension() || course.Dimension() != embedder.Dimension() {
		_ = embedder.Close()
		return nil, vtaerr.Errorf(vtaerr.CodeStoreLoadSchemaMismatch,
			"store dimension does not match embedder dimension %d (forum=%d, course=%d)",
			embedder.Dimension(), forum.Dimension(), course.Dimension())
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:       cfg.Gemini.APIKey,
		Model:        cfg.Gemini.Model,
		CaptionModel: cfg.Gemini.CaptionModel,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	builder := assist.NewBuilder(embedder, course, forum, cfg.Retrieval.TopK, cfg.Retrieval.ForumBaseURL)
	captioner := caption.NewService(client, slog.Default())
	service := assist.NewService(builder, captioner, client, slog.Default())

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, vtaerr.Errorf(vtaerr.CodeServerStartFailure, "creating server: %w", err)
	}
	srv.RegisterRoutes(service)

	return &App{
		Server:   srv,
		Embedder: embedder,
		Service:  service,
	}, nil
}

func newEmbedder(cfg *config.Config) (*embed.MiniLM, error) {
	return embed.NewMiniLM(embed.Config{
		ModelPath:     cfg.Embedding.ModelPath,
		TokenizerPath: cfg.Embedding.TokenizerPath,
		LibraryPath:   cfg.Embedding.LibraryPath,
		Model:         cfg.Embedding.Model,
		Dimension:     cfg.Embedding.Dimension,
		MaxSeqLen:     cfg.Embedding.MaxSeqLen,
	})
}
