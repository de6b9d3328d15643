// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package gemini wraps the Google GenAI SDK for the two remote calls this
// service makes: answering an assembled prompt and describing an image.
package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// Config holds Gemini client configuration.
type Config struct {
	APIKey string
	// Model answers assembled prompts.
	Model string
	// CaptionModel describes images; defaults to Model when empty.
	CaptionModel string
}

// Client calls the Gemini API. Safe for concurrent use.
type Client struct {
	client *genai.Client
	cfg    Config
}

// New creates a Gemini client. A missing API key is an error here, not at
// request time: the process must not serve traffic it cannot answer.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, vtaerr.New(vtaerr.CodeConfigValidateInvalidValue, "gemini: missing API key")
	}
	if cfg.CaptionModel == "" {
		cfg.CaptionModel = cfg.Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, vtaerr.Wrap(err, vtaerr.CodeGenerationUpstreamFailure, "gemini: creating client")
	}

	return &Client{client: client, cfg: cfg}, nil
}

// GenerateText sends a prompt to the answer model and returns its text
// output trimmed of surrounding whitespace.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, nil)
	if err != nil {
		return "", vtaerr.Wrap(err, vtaerr.CodeGenerationUpstreamFailure, "gemini: generating content",
			vtaerr.FieldModel(c.cfg.Model))
	}

	return strings.TrimSpace(resp.Text()), nil
}

// DescribeImage sends image bytes plus an instruction to the caption model
// and returns the description.
func (c *Client) DescribeImage(ctx context.Context, data []byte, mimeType, instruction string) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			{Text: instruction},
		},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.CaptionModel, contents, nil)
	if err != nil {
		return "", vtaerr.Wrap(err, vtaerr.CodeGenerationUpstreamFailure, "gemini: describing image",
			vtaerr.FieldModel(c.cfg.CaptionModel))
	}

	return strings.TrimSpace(resp.Text()), nil
}

// IsRateLimited reports whether err is a rate-limit-class failure (quota
// or 429). The batch captioner retries only these; anything else is a
// permanent failure for the image at hand.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
