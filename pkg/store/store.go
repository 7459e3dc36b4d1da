// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store indexes courses into two vector collections and answers
// retrieval queries against them.
//
// The catalog collection holds one document per course (the embedded
// title, used for fuzzy course-name resolution). The content collection
// holds the transcript chunks, filterable by course title and lesson
// number.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/embedder"
	"github.com/kadirpekel/lectern/pkg/vector"
)

const (
	// CatalogCollection holds one entry per course for name resolution.
	CatalogCollection = "course_catalog"

	// ContentCollection holds the transcript chunks.
	ContentCollection = "course_content"

	// registryID is the catalog document tracking all ingested titles.
	registryID = "__registry__"

	// catalog entries are tagged so resolution queries skip the registry
	kindKey    = "kind"
	kindCourse = "course"
)

// Config configures retrieval behavior.
type Config struct {
	// MaxResults returned per content search.
	MaxResults int

	// CatalogThreshold is the minimum similarity for accepting a fuzzy
	// course-name match.
	CatalogThreshold float32
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
	if c.CatalogThreshold <= 0 {
		c.CatalogThreshold = 0.3
	}
}

// Hit is one content search result.
type Hit struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Score        float32
}

// Outline is the lesson structure of one course.
type Outline struct {
	Title   string
	Link    string
	Lessons []course.Lesson
}

// CourseStore is the index adapter over a vector provider and an embedder.
type CourseStore struct {
	provider vector.Provider
	embedder embedder.Embedder
	cfg      Config
}

// New creates a course store.
func New(provider vector.Provider, emb embedder.Embedder, cfg Config) *CourseStore {
	cfg.SetDefaults()
	return &CourseStore{
		provider: provider,
		embedder: emb,
		cfg:      cfg,
	}
}

// AddCourse indexes a course and its chunks. Re-ingesting a course with
// the same title replaces its previous content, so ingestion is
// idempotent.
func (s *CourseStore) AddCourse(ctx context.Context, c *course.Course, chunks []course.Chunk) error {
	existing, err := s.provider.Get(ctx, CatalogCollection, c.Title)
	if err != nil {
		return fmt.Errorf("failed to check existing course: %w", err)
	}
	if existing != nil {
		slog.Info("Replacing previously ingested course", "course", c.Title)
		if err := s.provider.DeleteByFilter(ctx, ContentCollection, map[string]string{
			"course_title": c.Title,
		}); err != nil {
			return fmt.Errorf("failed to remove stale chunks for %q: %w", c.Title, err)
		}
		if err := s.provider.DeleteByFilter(ctx, CatalogCollection, map[string]string{
			"title": c.Title,
		}); err != nil {
			return fmt.Errorf("failed to remove stale catalog entry for %q: %w", c.Title, err)
		}
	}

	// Catalog entry: the embedded title plus the course metadata needed
	// for outlines and source links.
	titleVec, err := s.embedder.Embed(ctx, c.Title)
	if err != nil {
		return fmt.Errorf("failed to embed course title: %w", err)
	}

	lessonsJSON, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("failed to encode lessons: %w", err)
	}

	catalogDoc := vector.Document{
		ID:        c.Title,
		Content:   c.Title,
		Embedding: titleVec,
		Metadata: map[string]string{
			kindKey:        kindCourse,
			"title":        c.Title,
			"link":         c.Link,
			"instructor":   c.Instructor,
			"lessons":      string(lessonsJSON),
			"lesson_count": strconv.Itoa(len(c.Lessons)),
		},
	}
	if err := s.provider.Upsert(ctx, CatalogCollection, []vector.Document{catalogDoc}); err != nil {
		return fmt.Errorf("failed to index course catalog entry: %w", err)
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunks for %q: %w", c.Title, err)
		}
		if len(vecs) != len(chunks) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
		}

		docs := make([]vector.Document, len(chunks))
		for i, chunk := range chunks {
			metadata := map[string]string{
				"course_title": chunk.CourseTitle,
				"chunk_index":  strconv.Itoa(chunk.Index),
			}
			if chunk.LessonNumber != nil {
				metadata["lesson_number"] = strconv.Itoa(*chunk.LessonNumber)
			}
			docs[i] = vector.Document{
				ID:        fmt.Sprintf("%s::%d", chunk.CourseTitle, chunk.Index),
				Content:   chunk.Content,
				Embedding: vecs[i],
				Metadata:  metadata,
			}
		}
		if err := s.provider.Upsert(ctx, ContentCollection, docs); err != nil {
			return fmt.Errorf("failed to index chunks for %q: %w", c.Title, err)
		}
	}

	return s.registerTitle(ctx, c.Title)
}

// ResolveCourseName maps a possibly partial course name to an exact title.
// Exact titles short-circuit without an embedding round-trip; anything
// else is resolved by similarity against the catalog.
func (s *CourseStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	if doc, err := s.provider.Get(ctx, CatalogCollection, name); err == nil && doc != nil && doc.ID != registryID {
		return name, nil
	}

	vec, err := s.embedder.Embed(ctx, name)
	if err != nil {
		return "", NewSearchError("embedder", "resolve course name", name, err)
	}

	results, err := s.provider.Query(ctx, CatalogCollection, vec, 1, map[string]string{kindKey: kindCourse})
	if err != nil {
		return "", NewSearchError("vector_db", "resolve course name", name, err)
	}
	if len(results) == 0 || results[0].Score < s.cfg.CatalogThreshold {
		return "", &CourseNotFoundError{Name: name}
	}

	return results[0].Metadata["title"], nil
}

// Search runs a filtered semantic search over course content.
//
// courseName may be partial; it is resolved against the catalog first and
// a failed resolution returns ErrCourseNotFound. lessonNumber narrows to
// one lesson. An empty result set is not an error.
func (s *CourseStore) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = s.cfg.MaxResults
	}

	filter := make(map[string]string)
	if courseName != "" {
		resolved, err := s.ResolveCourseName(ctx, courseName)
		if err != nil {
			return nil, err
		}
		filter["course_title"] = resolved
	}
	if lessonNumber != nil {
		filter["lesson_number"] = strconv.Itoa(*lessonNumber)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewSearchError("embedder", "embed query", query, err)
	}

	results, err := s.provider.Query(ctx, ContentCollection, vec, limit, filter)
	if err != nil {
		return nil, NewSearchError("vector_db", "query content", query, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hit := Hit{
			Content:     r.Content,
			CourseTitle: r.Metadata["course_title"],
			Score:       r.Score,
		}
		if ln, err := strconv.Atoi(r.Metadata["lesson_number"]); err == nil {
			hit.LessonNumber = &ln
		}
		if idx, err := strconv.Atoi(r.Metadata["chunk_index"]); err == nil {
			hit.ChunkIndex = idx
		}
		hits = append(hits, hit)
	}

	// Backends return score order but leave ties unordered; pin ties to
	// document sequence so equal-score hits read in transcript order.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkIndex < hits[j].ChunkIndex
	})

	return hits, nil
}

// GetCourseOutline returns the lesson structure for a (possibly partial)
// course name.
func (s *CourseStore) GetCourseOutline(ctx context.Context, name string) (*Outline, error) {
	resolved, err := s.ResolveCourseName(ctx, name)
	if err != nil {
		return nil, err
	}

	doc, err := s.provider.Get(ctx, CatalogCollection, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog entry for %q: %w", resolved, err)
	}
	if doc == nil {
		return nil, &CourseNotFoundError{Name: name}
	}

	var lessons []course.Lesson
	if raw := doc.Metadata["lessons"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &lessons); err != nil {
			return nil, fmt.Errorf("corrupt lesson metadata for %q: %w", resolved, err)
		}
	}

	return &Outline{
		Title:   doc.Metadata["title"],
		Link:    doc.Metadata["link"],
		Lessons: lessons,
	}, nil
}

// GetLessonLink returns the link for a lesson, falling back to the course
// link when the lesson has none.
func (s *CourseStore) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	doc, err := s.provider.Get(ctx, CatalogCollection, courseTitle)
	if err != nil || doc == nil {
		return ""
	}

	var lessons []course.Lesson
	if raw := doc.Metadata["lessons"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &lessons)
	}
	for _, lesson := range lessons {
		if lesson.Number == lessonNumber && lesson.Link != "" {
			return lesson.Link
		}
	}
	return doc.Metadata["link"]
}

// GetCourseLink returns the course-level link.
func (s *CourseStore) GetCourseLink(ctx context.Context, courseTitle string) string {
	doc, err := s.provider.Get(ctx, CatalogCollection, courseTitle)
	if err != nil || doc == nil {
		return ""
	}
	return doc.Metadata["link"]
}

// ListCourseTitles returns the titles of all ingested courses.
func (s *CourseStore) ListCourseTitles(ctx context.Context) ([]string, error) {
	doc, err := s.provider.Get(ctx, CatalogCollection, registryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course registry: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	var titles []string
	if raw := doc.Metadata["titles"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &titles); err != nil {
			return nil, fmt.Errorf("corrupt course registry: %w", err)
		}
	}
	return titles, nil
}

// CourseCount returns the number of ingested courses.
func (s *CourseStore) CourseCount(ctx context.Context) (int, error) {
	titles, err := s.ListCourseTitles(ctx)
	if err != nil {
		return 0, err
	}
	return len(titles), nil
}

// registerTitle records a title in the registry document. The registry
// lives in the catalog collection so it survives persistence and backend
// restarts alongside the data it describes.
func (s *CourseStore) registerTitle(ctx context.Context, title string) error {
	titles, err := s.ListCourseTitles(ctx)
	if err != nil {
		return err
	}
	for _, t := range titles {
		if t == title {
			return nil
		}
	}
	titles = append(titles, title)

	raw, err := json.Marshal(titles)
	if err != nil {
		return fmt.Errorf("failed to encode course registry: %w", err)
	}

	// The registry needs a non-empty vector slot but must never win a
	// similarity query; resolution filters on kind=course instead.
	dim := s.embedder.Dimension()
	if dim <= 0 {
		dim = 1
	}
	placeholder := make([]float32, dim)
	placeholder[0] = 1

	// Replace rather than update; not every backend upserts in place.
	if err := s.provider.DeleteByFilter(ctx, CatalogCollection, map[string]string{kindKey: "registry"}); err != nil {
		return fmt.Errorf("failed to replace course registry: %w", err)
	}

	return s.provider.Upsert(ctx, CatalogCollection, []vector.Document{{
		ID:        registryID,
		Content:   registryID,
		Embedding: placeholder,
		Metadata: map[string]string{
			kindKey:  "registry",
			"titles": string(raw),
		},
	}})
}
