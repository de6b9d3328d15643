// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package caption

import (
	"context"
	"log/slog"
)

// Placeholder substitutes for a caption when the remote call fails. The
// answer pipeline carries on with it; captioning failure never aborts a
// request.
const Placeholder = "(image description unavailable)"

// liveInstruction is the fixed prompt for describing uploaded images.
const liveInstruction = "Describe this image for an academic Q&A forum assistant."

// Describer is the remote image-description call. *gemini.Client
// implements it.
type Describer interface {
	DescribeImage(ctx context.Context, data []byte, mimeType, instruction string) (string, error)
}

// Service captions uploaded images on the live request path.
type Service struct {
	describer Describer
	logger    *slog.Logger
}

func NewService(describer Describer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{describer: describer, logger: logger}
}

// Describe returns a caption for the image, or Placeholder if the remote
// call fails for any reason.
func (s *Service) Describe(ctx context.Context, data []byte, mimeType string) string {
	caption, err := s.describer.DescribeImage(ctx, data, mimeType, liveInstruction)
	if err != nil {
		s.logger.Warn("image captioning failed, substituting placeholder", "error", err)
		return Placeholder
	}
	if caption == "" {
		return Placeholder
	}
	return caption
}
