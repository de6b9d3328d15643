// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VTA Contributors

package store

// ForumRecord describes one forum post. Text is the full HTML-cleaned post
// body with image captions inlined where the offline captioner produced
// them.
type ForumRecord struct {
	TopicID   int64  `json:"topic_id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
	Text      string `json:"text"`
}

// CourseRecord describes one course-material chunk: a bounded slice of a
// course document, split on sentence boundaries.
type CourseRecord struct {
	SourceFile string `json:"source_file"`
	ChunkText  string `json:"chunk_text"`
}

// ChunkMeta is the debug/traceability sidecar written next to the course
// archive. The serving path never reads it.
type ChunkMeta struct {
	File    string `json:"file"`
	Preview string `json:"chunk"`
}

type (
	ForumStore  = Store[ForumRecord]
	CourseStore = Store[CourseRecord]
)

// LoadForum loads the forum embedding store.
func LoadForum(path string) (*ForumStore, error) {
	return Load[ForumRecord](path, "forum")
}

// LoadCourse loads the course-material embedding store.
func LoadCourse(path string) (*CourseStore, error) {
	return Load[CourseRecord](path, "course")
}
