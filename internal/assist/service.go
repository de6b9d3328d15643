// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package assist

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vta-dev/vta/internal/caption"
)

// TextGenerator is the remote answer-generation call. *gemini.Client
// implements it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Answer is a generated response plus the forum citations that informed it.
type Answer struct {
	Text  string `json:"answer"`
	Links []Link `json:"links"`
}

// Service is the externally exposed ask pipeline.
type Service struct {
	builder   *Builder
	captioner *caption.Service
	generator TextGenerator
	logger    *slog.Logger
}

func NewService(builder *Builder, captioner *caption.Service, generator TextGenerator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		builder:   builder,
		captioner: captioner,
		generator: generator,
		logger:    logger,
	}
}

// Ask answers a question, optionally grounded on an uploaded image. Image
// decode failures propagate to the caller as client errors. A captioning
// failure does not: the pipeline carries on with a placeholder caption.
func (s *Service) Ask(ctx context.Context, question, imageB64 string) (Answer, error) {
	var imageCaption string
	if imageB64 != "" {
		data, mimeType, err := DecodeImage(imageB64)
		if err != nil {
			return Answer{}, err
		}
		imageCaption = s.captioner.Describe(ctx, data, mimeType)
	}

	built, err := s.builder.Build(ctx, question, imageCaption)
	if err != nil {
		return Answer{}, err
	}

	text, err := s.generator.GenerateText(ctx, built.Prompt)
	if err != nil {
		return Answer{}, err
	}

	s.logger.Debug("answered question",
		"question_len", len(question),
		"links", len(built.Links),
		"with_image", imageB64 != "",
	)

	return Answer{Text: strings.TrimSpace(text), Links: built.Links}, nil
}
