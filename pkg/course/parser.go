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

package course

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Course documents follow a fixed layout:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<transcript text...>
//
//	Lesson 1: ...
//
// Only the title is mandatory. Text before the first lesson marker is
// treated as course-level content with no lesson number.
var (
	lessonMarkerRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)
	lessonLinkRe   = regexp.MustCompile(`^Lesson Link:\s*(\S+)`)
)

// Parser turns course documents into Course metadata and content chunks.
type Parser struct {
	chunker *SentenceChunker
}

// NewParser creates a parser that chunks lesson content with the given
// chunker.
func NewParser(chunker *SentenceChunker) *Parser {
	return &Parser{chunker: chunker}
}

// Parse parses raw document text. The path is only used in error messages.
func (p *Parser) Parse(path, text string) (*Course, []Chunk, error) {
	lines := strings.Split(text, "\n")

	course, bodyStart, err := parseHeader(path, lines)
	if err != nil {
		return nil, nil, err
	}

	var chunks []Chunk

	// Content before the first lesson marker belongs to the course itself.
	var lessonNum *int
	var lessonContent []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(lessonContent, " "))
		lessonContent = lessonContent[:0]
		if content == "" {
			return
		}
		for i, piece := range p.chunker.Chunk(content) {
			if i == 0 {
				piece = contextPrefix(course.Title, lessonNum) + piece
			}
			chunks = append(chunks, Chunk{
				Content:      piece,
				CourseTitle:  course.Title,
				LessonNumber: lessonNum,
				Index:        len(chunks),
			})
		}
	}

	for i := bodyStart; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if m := lessonMarkerRe.FindStringSubmatch(line); m != nil {
			flush()

			num, _ := strconv.Atoi(m[1])
			lesson := Lesson{Number: num, Title: strings.TrimSpace(m[2])}

			// Optional link on the line right after the marker.
			if i+1 < len(lines) {
				if lm := lessonLinkRe.FindStringSubmatch(strings.TrimSpace(lines[i+1])); lm != nil {
					lesson.Link = lm[1]
					i++
				}
			}

			course.Lessons = append(course.Lessons, lesson)
			n := num
			lessonNum = &n
			continue
		}

		if line != "" {
			lessonContent = append(lessonContent, line)
		}
	}
	flush()

	return course, chunks, nil
}

// parseHeader reads the course metadata block and returns the course plus
// the index of the first body line.
func parseHeader(path string, lines []string) (*Course, int, error) {
	course := &Course{}
	i := 0

	// Skip leading blank lines.
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return nil, 0, NewParseError(path, "document is empty", nil)
	}

	first := strings.TrimSpace(lines[i])
	if title, ok := strings.CutPrefix(first, "Course Title:"); ok {
		course.Title = strings.TrimSpace(title)
	} else {
		// Tolerate documents that open with a bare title line.
		course.Title = first
	}
	if course.Title == "" {
		return nil, 0, NewParseError(path, "missing course title", nil)
	}
	i++

	// Link and instructor lines are optional and may appear in any order.
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if v, ok := strings.CutPrefix(line, "Course Link:"); ok {
			course.Link = strings.TrimSpace(v)
			continue
		}
		if v, ok := strings.CutPrefix(line, "Course Instructor:"); ok {
			course.Instructor = strings.TrimSpace(v)
			continue
		}
		break
	}

	return course, i, nil
}

// contextPrefix is prepended to the first chunk of each lesson so that a
// retrieved chunk carries its own provenance.
func contextPrefix(title string, lessonNum *int) string {
	if lessonNum != nil {
		return fmt.Sprintf("Course %s Lesson %d content: ", title, *lessonNum)
	}
	return fmt.Sprintf("Course %s content: ", title)
}
