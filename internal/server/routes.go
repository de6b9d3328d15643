// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vta-dev/vta/internal/assist"
	vtaerr "github.com/vta-dev/vta/pkg/errors"
)

// AnswerService answers course questions with supporting links.
type AnswerService interface {
	Ask(ctx context.Context, question, imageB64 string) (assist.Answer, error)
}

// RegisterRoutes wires the answer service into the API.
func (s *Server) RegisterRoutes(svc AnswerService) {
	huma.Register(s.api, huma.Operation{
		OperationID: "ask",
		Method:      http.MethodPost,
		Path:        "/ask",
		Summary:     "Ask a course question",
		Tags:        []string{"assist"},
	}, makeAskHandler(svc))
}

type askInput struct {
	Body struct {
		Question string `json:"question" minLength:"1" doc:"The student question"`
		Image    string `json:"image,omitempty" doc:"Optional base64-encoded screenshot"`
	}
}

type askOutput struct {
	Body assist.Answer
}

func makeAskHandler(svc AnswerService) func(context.Context, *askInput) (*askOutput, error) {
	return func(ctx context.Context, input *askInput) (*askOutput, error) {
		answer, err := svc.Ask(ctx, input.Body.Question, input.Body.Image)
		if err != nil {
			return nil, askError(err)
		}
		return &askOutput{Body: answer}, nil
	}
}

// askError maps service failures onto HTTP errors. Invalid client
// input (a bad image payload) gets a 400 with the decode message;
// everything else is an opaque 500.
func askError(err error) error {
	status := vtaerr.HTTPStatus(err)
	if status == http.StatusBadRequest {
		return huma.Error400BadRequest(err.Error())
	}
	slog.Error("answering question failed", "code", vtaerr.CodeOf(err), "error", err)
	return huma.Error500InternalServerError(err.Error())
}
