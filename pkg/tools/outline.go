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

// OutlineTool returns the lesson structure of a course.
type OutlineTool struct {
	store *store.CourseStore
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(s *store.CourseStore) *OutlineTool {
	return &OutlineTool{store: s}
}

// Name returns the tool name as exposed to the model.
func (t *OutlineTool) Name() string {
	return "get_course_outline"
}

// Description returns the tool description for the model.
func (t *OutlineTool) Description() string {
	return "Get the full outline of a course: title, link, and complete lesson list"
}

// Schema returns the JSON Schema of the tool's input.
func (t *OutlineTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"course_title": map[string]any{
				"type":        "string",
				"description": "Course title (partial matches work)",
			},
		},
		"required": []string{"course_title"},
	}
}

// Execute looks up the outline and renders it for the model.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, []course.Source, error) {
	title, ok := args["course_title"].(string)
	if !ok || title == "" {
		return "", nil, fmt.Errorf("get_course_outline requires a course_title argument")
	}

	outline, err := t.store.GetCourseOutline(ctx, title)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", title), nil, nil
		}
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&sb, "Link: %s\n", outline.Link)
	}
	sb.WriteString("Lessons:\n")
	for _, lesson := range outline.Lessons {
		fmt.Fprintf(&sb, "  Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	sources := []course.Source{{Text: outline.Title, Link: outline.Link}}
	return strings.TrimRight(sb.String(), "\n"), sources, nil
}

// Ensure OutlineTool implements Tool.
var _ Tool = (*OutlineTool)(nil)
