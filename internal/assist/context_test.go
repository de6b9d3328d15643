// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package assist_test

import (
	"context"
	"strings"
	"testing"

	"github.com/vta-dev/vta/internal/assist"
	"github.com/vta-dev/vta/internal/embed"
	"github.com/vta-dev/vta/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testForumURL = "https://discourse.example.edu/t"

func buildStores(t *testing.T, embedder embed.Embedder, courseTexts []string, forumRecords []store.ForumRecord) (*store.CourseStore, *store.ForumStore) {
	t.Helper()
	ctx := context.Background()

	courseRecords := make([]store.CourseRecord, len(courseTexts))
	for i, text := range courseTexts {
		courseRecords[i] = store.CourseRecord{SourceFile: "intro.md", ChunkText: text}
	}
	courseVecs, err := embedder.EmbedBatch(ctx, courseTexts)
	require.NoError(t, err)

	course, err := store.New(embedder.ModelName(), embedder.Dimension(), courseVecs, courseRecords)
	require.NoError(t, err)

	forumTexts := make([]string, len(forumRecords))
	for i, rec := range forumRecords {
		forumTexts[i] = rec.Text
	}
	forumVecs, err := embedder.EmbedBatch(ctx, forumTexts)
	require.NoError(t, err)

	forum, err := store.New(embedder.ModelName(), embedder.Dimension(), forumVecs, forumRecords)
	require.NoError(t, err)

	return course, forum
}

func TestBuildRetrievesRelevantCourseChunk(t *testing.T) {
	embedder := embed.NewMock(64)
	course, forum := buildStores(t, embedder,
		[]string{
			"Regression predicts a continuous outcome.",
			"Docker packages applications into containers.",
		},
		[]store.ForumRecord{
			{TopicID: 42, Title: "Week 3 regression doubt", Text: "Is regression graded?"},
		},
	)

	builder := assist.NewBuilder(embedder, course, forum, 1, testForumURL)
	built, err := builder.Build(context.Background(), "What is regression?", "")
	require.NoError(t, err)

	courseSection := between(t, built.Prompt, "### Course Material:", "### Forum Discussions:")
	assert.Contains(t, courseSection, "Regression predicts a continuous outcome.")
	assert.NotContains(t, courseSection, "Docker packages")
}

func TestBuildSectionOrder(t *testing.T) {
	embedder := embed.NewMock(64)
	course, forum := buildStores(t, embedder,
		[]string{"Course chunk."},
		[]store.ForumRecord{{TopicID: 1, Title: "t", Text: "Forum post."}},
	)

	builder := assist.NewBuilder(embedder, course, forum, 3, testForumURL)
	built, err := builder.Build(context.Background(), "Any question?", "A plot of residuals.")
	require.NoError(t, err)

	courseIdx := strings.Index(built.Prompt, "### Course Material:")
	forumIdx := strings.Index(built.Prompt, "### Forum Discussions:")
	imageIdx := strings.Index(built.Prompt, "### Image Context:")
	questionIdx := strings.Index(built.Prompt, "Now answer the question:")

	require.NotEqual(t, -1, courseIdx)
	require.NotEqual(t, -1, forumIdx)
	require.NotEqual(t, -1, imageIdx)
	require.NotEqual(t, -1, questionIdx)

	assert.Less(t, courseIdx, forumIdx)
	assert.Less(t, forumIdx, imageIdx)
	assert.Less(t, imageIdx, questionIdx)
	assert.Contains(t, built.Prompt, "A plot of residuals.")
}

func TestBuildOmitsImageSectionWithoutCaption(t *testing.T) {
	embedder := embed.NewMock(64)
	course, forum := buildStores(t, embedder, []string{"Chunk."}, nil)

	builder := assist.NewBuilder(embedder, course, forum, 3, testForumURL)
	built, err := builder.Build(context.Background(), "Q?", "")
	require.NoError(t, err)

	assert.NotContains(t, built.Prompt, "### Image Context:")
}

func TestBuildQuestionIsVerbatimFinalSegment(t *testing.T) {
	embedder := embed.NewMock(64)

	tests := []struct {
		name        string
		courseTexts []string
		forum       []store.ForumRecord
	}{
		{"populated stores", []string{"Some chunk."}, []store.ForumRecord{{TopicID: 9, Text: "Post."}}},
		{"empty stores", nil, nil},
	}

	const question = "When is the project deadline?"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course, forum := buildStores(t, embedder, tt.courseTexts, tt.forum)
			builder := assist.NewBuilder(embedder, course, forum, 3, testForumURL)

			built, err := builder.Build(context.Background(), question, "")
			require.NoError(t, err)

			assert.NotEmpty(t, built.Prompt)
			assert.True(t, strings.HasSuffix(built.Prompt, "Now answer the question:\n"+question))
		})
	}
}

func TestBuildOneLinkPerForumResult(t *testing.T) {
	embedder := embed.NewMock(64)
	// Two posts from the same topic: both emit a link, no deduplication.
	course, forum := buildStores(t, embedder, nil, []store.ForumRecord{
		{TopicID: 7, Title: "GA2 clarification", Text: "deadline extended to Friday"},
		{TopicID: 7, Title: "GA2 clarification", Text: "deadline confirmation from staff"},
		{TopicID: 8, Title: "", Text: "unrelated post about docker"},
	})

	builder := assist.NewBuilder(embedder, course, forum, 3, testForumURL)
	built, err := builder.Build(context.Background(), "was the deadline extended?", "")
	require.NoError(t, err)

	require.Len(t, built.Links, 3)
	urls := []string{built.Links[0].URL, built.Links[1].URL, built.Links[2].URL}
	assert.Contains(t, urls, testForumURL+"/7")
	assert.Contains(t, urls, testForumURL+"/8")

	// Untitled records get the fallback label.
	for _, link := range built.Links {
		if link.URL == testForumURL+"/8" {
			assert.Equal(t, "Forum Post", link.Text)
		}
	}
}

func TestBuildEmptyStoresYieldEmptyLinks(t *testing.T) {
	embedder := embed.NewMock(64)
	course, forum := buildStores(t, embedder, nil, nil)

	builder := assist.NewBuilder(embedder, course, forum, 3, testForumURL)
	built, err := builder.Build(context.Background(), "Anything?", "")
	require.NoError(t, err)

	assert.NotNil(t, built.Links)
	assert.Empty(t, built.Links)
}

func TestBuildEmbedsQuestionOnce(t *testing.T) {
	embedder := &countingEmbedder{Mock: embed.NewMock(64)}
	course, forum := buildStores(t, embedder.Mock, []string{"a"}, []store.ForumRecord{{TopicID: 1, Text: "b"}})

	builder := assist.NewBuilder(embedder, course, forum, 3, testForumURL)
	_, err := builder.Build(context.Background(), "How many times am I embedded?", "")
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.embedCalls)
}

type countingEmbedder struct {
	*embed.Mock
	embedCalls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.Mock.Embed(ctx, text)
}

func between(t *testing.T, s, start, end string) string {
	t.Helper()
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	require.NotEqual(t, -1, i)
	require.NotEqual(t, -1, j)
	require.Less(t, i, j)
	return s[i:j]
}
