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
	"fmt"
	"strings"

	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/store"
)

// SearchTool searches course content with optional course and lesson
// filters.
//
// Failed course resolution and empty result sets come back as tool-result
// text for the model to react to conversationally; only infrastructure
// failures surface as errors and abort the query.
type SearchTool struct {
	store *store.CourseStore
}

// NewSearchTool creates the content search tool.
func NewSearchTool(s *store.CourseStore) *SearchTool {
	return &SearchTool{store: s}
}

// Name returns the tool name as exposed to the model.
func (t *SearchTool) Name() string {
	return "search_course_content"
}

// Description returns the tool description for the model.
func (t *SearchTool) Description() string {
	return "Search course materials with smart course name matching and lesson filtering"
}

// Schema returns the JSON Schema of the tool's input.
func (t *SearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to search for in course content",
			},
			"course_name": map[string]any{
				"type":        "string",
				"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": map[string]any{
				"type":        "integer",
				"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
		"required": []string{"query"},
	}
}

// Execute runs the search and formats results for the model.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, []course.Source, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", nil, fmt.Errorf("search_course_content requires a query argument")
	}

	courseName, _ := args["course_name"].(string)

	var lessonNumber *int
	// JSON numbers decode as float64
	if f, ok := args["lesson_number"].(float64); ok {
		n := int(f)
		lessonNumber = &n
	} else if n, ok := args["lesson_number"].(int); ok {
		lessonNumber = &n
	}

	hits, err := t.store.Search(ctx, query, courseName, lessonNumber, 0)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", courseName), nil, nil
		}
		return "", nil, err
	}

	if len(hits) == 0 {
		return noResultsMessage(courseName, lessonNumber), nil, nil
	}

	return t.formatHits(ctx, hits)
}

// noResultsMessage describes an empty result set including the filters
// that were applied.
func noResultsMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg
}

// formatHits renders hits for the model and collects deduplicated source
// citations.
func (t *SearchTool) formatHits(ctx context.Context, hits []store.Hit) (string, []course.Source, error) {
	var parts []string
	var sources []course.Source
	seen := make(map[string]bool)

	for _, hit := range hits {
		label := course.SourceLabel(hit.CourseTitle, hit.LessonNumber)
		parts = append(parts, fmt.Sprintf("[%s]\n%s", label, hit.Content))

		if seen[label] {
			continue
		}
		seen[label] = true

		var link string
		if hit.LessonNumber != nil {
			link = t.store.GetLessonLink(ctx, hit.CourseTitle, *hit.LessonNumber)
		} else {
			link = t.store.GetCourseLink(ctx, hit.CourseTitle)
		}
		sources = append(sources, course.Source{Text: label, Link: link})
	}

	return strings.Join(parts, "\n\n"), sources, nil
}

// Ensure SearchTool implements Tool.
var _ Tool = (*SearchTool)(nil)
