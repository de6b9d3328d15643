// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

// Package assist answers course questions: it retrieves evidence from the
// forum and course-material stores, assembles a prompt, and sends it to
// the generative model.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/vta-dev/vta/internal/embed"
	"github.com/vta-dev/vta/internal/search"
	"github.com/vta-dev/vta/internal/store"
)

// preamble always opens the assembled prompt, so the model sees corpus
// evidence before the live question.
const preamble = "You are a virtual assistant for a data science course. " +
	"Use the forum discussions, course materials, and image (if any) to answer the question."

// fallbackLinkText labels a citation whose forum record has no title.
const fallbackLinkText = "Forum Post"

// Link is a citation pointing back at a retrieved forum topic.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Context is the assembled prompt plus the forum citations backing it.
type Context struct {
	Prompt string
	Links  []Link
}

// Builder assembles the prompt for one question. The section order is a
// contract: preamble, course material, forum discussions, optional image
// context, then the literal question.
type Builder struct {
	embedder     embed.Embedder
	course       *store.CourseStore
	forum        *store.ForumStore
	topK         int
	forumBaseURL string
}

func NewBuilder(embedder embed.Embedder, course *store.CourseStore, forum *store.ForumStore, topK int, forumBaseURL string) *Builder {
	return &Builder{
		embedder:     embedder,
		course:       course,
		forum:        forum,
		topK:         topK,
		forumBaseURL: strings.TrimRight(forumBaseURL, "/"),
	}
}

// Build embeds the question once, retrieves top-K passages from each store
// independently, and assembles the prompt. The prompt is never empty: even
// with both stores empty it carries the preamble and the verbatim
// question. Links hold one entry per retrieved forum record, in retrieval
// order, without deduplication.
func (b *Builder) Build(ctx context.Context, question, imageCaption string) (Context, error) {
	vec, err := b.embedder.Embed(ctx, question)
	if err != nil {
		return Context{}, err
	}

	courseResults := search.TopK(vec, b.course, b.topK)
	forumResults := search.TopK(vec, b.forum, b.topK)

	courseTexts := make([]string, len(courseResults))
	for i, r := range courseResults {
		courseTexts[i] = b.course.Record(r.Index).ChunkText
	}

	forumTexts := make([]string, len(forumResults))
	links := make([]Link, 0, len(forumResults))
	for i, r := range forumResults {
		rec := b.forum.Record(r.Index)
		forumTexts[i] = rec.Text

		text := rec.Title
		if text == "" {
			text = fallbackLinkText
		}
		links = append(links, Link{
			URL:  fmt.Sprintf("%s/%d", b.forumBaseURL, rec.TopicID),
			Text: text,
		})
	}

	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\n---\n\n### Course Material:\n")
	sb.WriteString(strings.Join(courseTexts, "\n\n"))
	sb.WriteString("\n\n---\n\n### Forum Discussions:\n")
	sb.WriteString(strings.Join(forumTexts, "\n\n"))

	if imageCaption != "" {
		sb.WriteString("\n\n### Image Context:\n")
		sb.WriteString(imageCaption)
	}

	sb.WriteString("\n\nNow answer the question:\n")
	sb.WriteString(question)

	return Context{Prompt: sb.String(), Links: links}, nil
}
