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

// Package course defines the course data model and turns course transcript
// documents into indexable chunks.
package course

import "fmt"

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course is the parsed metadata of one course document.
//
// The title doubles as the course identifier: re-ingesting a document with
// the same title replaces the previous index entries.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is one indexable piece of course content.
//
// LessonNumber is nil for content that appears before the first lesson
// marker in the document.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	Index        int
}

// Source is a citation attached to a generated answer.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// SourceLabel builds the display text of a citation for a course hit.
func SourceLabel(courseTitle string, lessonNumber *int) string {
	if lessonNumber != nil {
		return fmt.Sprintf("%s - Lesson %d", courseTitle, *lessonNumber)
	}
	return courseTitle
}
