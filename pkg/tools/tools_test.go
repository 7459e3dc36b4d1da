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

package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/store"
	"github.com/kadirpekel/lectern/pkg/vector"
)

// stubEmbedder mirrors the fixture used in the store tests: fixed vectors
// per text, a spare direction for everything else.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int { return 4 }
func (e *stubEmbedder) Model() string  { return "stub" }
func (e *stubEmbedder) Close() error   { return nil }

func lessonPtr(n int) *int { return &n }

func newTestStore(t *testing.T) *store.CourseStore {
	t.Helper()
	provider, err := vector.NewChromemProvider(vector.ChromemConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	emb := &stubEmbedder{vectors: map[string][]float32{
		"Building RAG Applications": {1, 0, 0, 0},
		"intro chunk":               {0, 1, 0, 0},
		"vector store chunk":        {0, 0, 1, 0},
		"vectors":                   {0, 0.1, 0.9, 0},
	}}
	s := store.New(provider, emb, store.Config{MaxResults: 5, CatalogThreshold: 0.3})

	c := &course.Course{
		Title: "Building RAG Applications",
		Link:  "https://example.com/rag",
		Lessons: []course.Lesson{
			{Number: 1, Title: "Introduction", Link: "https://example.com/rag/1"},
			{Number: 2, Title: "Vector Stores"},
		},
	}
	chunks := []course.Chunk{
		{Content: "intro chunk", CourseTitle: c.Title, LessonNumber: lessonPtr(1), Index: 0},
		{Content: "vector store chunk", CourseTitle: c.Title, LessonNumber: lessonPtr(2), Index: 1},
	}
	require.NoError(t, s.AddCourse(context.Background(), c, chunks))

	return s
}

func TestSearchToolFormatsResults(t *testing.T) {
	tool := NewSearchTool(newTestStore(t))

	text, sources, err := tool.Execute(context.Background(), map[string]any{"query": "vectors"})
	require.NoError(t, err)

	assert.Contains(t, text, "[Building RAG Applications - Lesson 2]")
	assert.Contains(t, text, "vector store chunk")

	require.NotEmpty(t, sources)
	assert.Equal(t, "Building RAG Applications - Lesson 2", sources[0].Text)
	// Lesson 2 has no link of its own; the course link fills in.
	assert.Equal(t, "https://example.com/rag", sources[0].Link)
}

func TestSearchToolLessonNumberFromJSON(t *testing.T) {
	tool := NewSearchTool(newTestStore(t))

	// JSON decoding hands numbers over as float64.
	text, sources, err := tool.Execute(context.Background(), map[string]any{
		"query":         "vectors",
		"lesson_number": float64(1),
	})
	require.NoError(t, err)
	assert.Contains(t, text, "[Building RAG Applications - Lesson 1]")
	require.Len(t, sources, 1)
	assert.Equal(t, "https://example.com/rag/1", sources[0].Link)
}

func TestSearchToolNoResults(t *testing.T) {
	tool := NewSearchTool(newTestStore(t))
	ctx := context.Background()

	// A lesson that has no chunks at all.
	text, sources, err := tool.Execute(ctx, map[string]any{
		"query":         "vectors",
		"lesson_number": float64(9),
	})
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found in lesson 9", text)
	assert.Empty(t, sources)

	text, _, err = tool.Execute(ctx, map[string]any{
		"query":         "vectors",
		"course_name":   "Building RAG Applications",
		"lesson_number": float64(9),
	})
	require.NoError(t, err)
	assert.Equal(t, "No relevant content found in course 'Building RAG Applications' in lesson 9", text)
}

func TestSearchToolUnknownCourseIsMessage(t *testing.T) {
	tool := NewSearchTool(newTestStore(t))

	text, sources, err := tool.Execute(context.Background(), map[string]any{
		"query":       "vectors",
		"course_name": "Quantum Basket Weaving",
	})
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Quantum Basket Weaving'", text)
	assert.Empty(t, sources)
}

func TestSearchToolRequiresQuery(t *testing.T) {
	tool := NewSearchTool(newTestStore(t))

	_, _, err := tool.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestSearchToolSourceDedup(t *testing.T) {
	s := newTestStore(t)
	tool := NewSearchTool(s)

	// Both lesson-1 filtered hits would share a label; sources must not
	// repeat it.
	text, sources, err := tool.Execute(context.Background(), map[string]any{
		"query":         "vectors",
		"lesson_number": float64(1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, text)

	seen := make(map[string]bool)
	for _, src := range sources {
		assert.False(t, seen[src.Text], "duplicate source %q", src.Text)
		seen[src.Text] = true
	}
}

func TestOutlineTool(t *testing.T) {
	tool := NewOutlineTool(newTestStore(t))

	text, sources, err := tool.Execute(context.Background(), map[string]any{
		"course_title": "Building RAG Applications",
	})
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	assert.Equal(t, "Course: Building RAG Applications", lines[0])
	assert.Equal(t, "Link: https://example.com/rag", lines[1])
	assert.Equal(t, "Lessons:", lines[2])
	assert.Equal(t, "  Lesson 1: Introduction", lines[3])
	assert.Equal(t, "  Lesson 2: Vector Stores", lines[4])

	require.Len(t, sources, 1)
	assert.Equal(t, "Building RAG Applications", sources[0].Text)
}

func TestOutlineToolUnknownCourse(t *testing.T) {
	tool := NewOutlineTool(newTestStore(t))

	text, _, err := tool.Execute(context.Background(), map[string]any{
		"course_title": "Nonexistent",
	})
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Nonexistent'", text)
}

func TestRegistryDispatch(t *testing.T) {
	s := newTestStore(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewSearchTool(s)))
	require.NoError(t, reg.Register(NewOutlineTool(s)))

	text, _, err := reg.Dispatch(context.Background(), "search_course_content", map[string]any{"query": "vectors"})
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	names := make([]string, 0)
	for _, tool := range reg.Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"get_course_outline", "search_course_content"}, names)
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()

	_, _, err := reg.Dispatch(context.Background(), "launch_rockets", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	s := newTestStore(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewSearchTool(s)))
	assert.Error(t, reg.Register(NewSearchTool(s)))
}
