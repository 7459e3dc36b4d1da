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

package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/lectern/pkg/config"
	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/generator"
	"github.com/kadirpekel/lectern/pkg/llm"
	"github.com/kadirpekel/lectern/pkg/session"
	"github.com/kadirpekel/lectern/pkg/store"
	"github.com/kadirpekel/lectern/pkg/tools"
	"github.com/kadirpekel/lectern/pkg/vector"
)

// hashEmbedder produces deterministic vectors from text content so
// identical texts collide and different texts mostly do not. Good enough
// for exercising the pipeline without a model server.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r%13) / 13
	}
	return vec, nil
}

func (e hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (hashEmbedder) Dimension() int { return 8 }
func (hashEmbedder) Model() string  { return "hash" }
func (hashEmbedder) Close() error   { return nil }

// scriptedLLM replays canned responses.
type scriptedLLM struct {
	responses []*llm.Response
	requests  []*llm.Request
}

func (p *scriptedLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	p.requests = append(p.requests, req)
	i := len(p.requests) - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return p.responses[i], nil
}

func (p *scriptedLLM) Model() string { return "scripted" }
func (p *scriptedLLM) Close() error  { return nil }

func newTestSystem(t *testing.T, model *scriptedLLM) *System {
	t.Helper()

	cfg := &config.Config{}
	cfg.SetDefaults()

	chunker, err := course.NewSentenceChunker(course.ChunkerConfig{Size: 200, Overlap: 40})
	require.NoError(t, err)

	provider, err := vector.NewChromemProvider(vector.ChromemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	emb := hashEmbedder{}
	courseStore := store.New(provider, emb, store.Config{MaxResults: 5, CatalogThreshold: 0.3})

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.NewSearchTool(courseStore)))
	require.NoError(t, registry.Register(tools.NewOutlineTool(courseStore)))

	if model == nil {
		model = &scriptedLLM{responses: []*llm.Response{{Text: "canned answer"}}}
	}

	return &System{
		cfg:       cfg,
		parser:    course.NewParser(chunker),
		embedder:  emb,
		provider:  provider,
		store:     courseStore,
		registry:  registry,
		llm:       model,
		generator: generator.New(model),
		sessions:  session.NewManager(cfg.Session),
	}
}

const sampleDoc = `Course Title: Test Course
Course Link: https://example.com/test
Course Instructor: Jane Doe

Lesson 1: Getting Started
Lesson Link: https://example.com/test/1
Welcome to the course. This lesson introduces the main ideas. We cover the setup and the goals.

Lesson 2: Going Deeper
This lesson builds on the first. It digs into the details that matter in practice.
`

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAddCourseDocument(t *testing.T) {
	sys := newTestSystem(t, nil)
	path := writeDoc(t, t.TempDir(), "test.txt", sampleDoc)

	c, chunkCount, err := sys.AddCourseDocument(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Test Course", c.Title)
	assert.Len(t, c.Lessons, 2)
	assert.Greater(t, chunkCount, 0)

	titles, err := sys.Store().ListCourseTitles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Test Course"}, titles)
}

func TestAddCourseFolder(t *testing.T) {
	sys := newTestSystem(t, nil)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", sampleDoc)
	writeDoc(t, dir, "ignored.json", `{"not": "a transcript"}`)

	courses, chunks, err := sys.AddCourseFolder(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, courses)
	assert.Greater(t, chunks, 0)

	// Second pass sees the title already indexed and adds nothing.
	courses, chunks, err = sys.AddCourseFolder(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 0, courses)
	assert.Equal(t, 0, chunks)
}

func TestAddCourseFolderIsolatesBadFiles(t *testing.T) {
	sys := newTestSystem(t, nil)
	dir := t.TempDir()
	writeDoc(t, dir, "bad.txt", "")
	writeDoc(t, dir, "good.txt", sampleDoc)

	courses, _, err := sys.AddCourseFolder(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, courses)
}

func TestAddCourseFolderClearExisting(t *testing.T) {
	sys := newTestSystem(t, nil)
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", sampleDoc)

	_, _, err := sys.AddCourseFolder(context.Background(), dir, false)
	require.NoError(t, err)

	// Clearing drops the old index; the same course counts as new again.
	courses, _, err := sys.AddCourseFolder(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Equal(t, 1, courses)
}

func TestQueryCreatesSession(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{{Text: "the answer"}}}
	sys := newTestSystem(t, model)

	result, err := sys.Query(context.Background(), "what is this course about?", "")
	require.NoError(t, err)

	assert.Equal(t, "the answer", result.Answer)
	assert.NotEmpty(t, result.SessionID)

	// The user prompt is wrapped, not passed raw.
	require.Len(t, model.requests, 1)
	assert.Equal(t,
		"Answer this question about course materials: what is this course about?",
		model.requests[0].Messages[0].Content)
}

func TestQueryThreadsHistory(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{{Text: "first"}, {Text: "second"}}}
	sys := newTestSystem(t, model)
	ctx := context.Background()

	first, err := sys.Query(ctx, "question one", "")
	require.NoError(t, err)

	_, err = sys.Query(ctx, "question two", first.SessionID)
	require.NoError(t, err)

	require.Len(t, model.requests, 2)
	assert.Contains(t, model.requests[1].System, "User: question one")
	assert.Contains(t, model.requests[1].System, "Assistant: first")
}

func TestQueryWithToolRound(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID:   "tu_1",
			Name: "get_course_outline",
			Args: map[string]any{"course_title": "Test Course"},
		}}},
		{Text: "The course has two lessons."},
	}}
	sys := newTestSystem(t, model)
	ctx := context.Background()

	path := writeDoc(t, t.TempDir(), "test.txt", sampleDoc)
	_, _, err := sys.AddCourseDocument(ctx, path)
	require.NoError(t, err)

	result, err := sys.Query(ctx, "outline of Test Course?", "")
	require.NoError(t, err)

	assert.Equal(t, "The course has two lessons.", result.Answer)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "Test Course", result.Sources[0].Text)
	assert.Equal(t, "https://example.com/test", result.Sources[0].Link)
}

func TestClearSession(t *testing.T) {
	model := &scriptedLLM{responses: []*llm.Response{{Text: "a"}, {Text: "b"}}}
	sys := newTestSystem(t, model)
	ctx := context.Background()

	first, err := sys.Query(ctx, "q1", "")
	require.NoError(t, err)

	sys.ClearSession(first.SessionID)

	_, err = sys.Query(ctx, "q2", first.SessionID)
	require.NoError(t, err)
	assert.NotContains(t, model.requests[1].System, "Previous conversation")
}

func TestAnalytics(t *testing.T) {
	sys := newTestSystem(t, nil)
	ctx := context.Background()

	stats, err := sys.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCourses)
	assert.NotNil(t, stats.CourseTitles)

	path := writeDoc(t, t.TempDir(), "test.txt", sampleDoc)
	_, _, err = sys.AddCourseDocument(ctx, path)
	require.NoError(t, err)

	stats, err = sys.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCourses)
	assert.Equal(t, []string{"Test Course"}, stats.CourseTitles)
}
