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

package store

import (
	"errors"
	"fmt"
)

// ErrCourseNotFound marks failed fuzzy course-name resolution.
var ErrCourseNotFound = errors.New("course not found")

// ErrSearchFailed marks infrastructure failures during search.
// Distinct from an empty result set, which is not an error.
var ErrSearchFailed = errors.New("search failed")

// CourseNotFoundError reports which name failed to resolve.
type CourseNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("no course found matching %q", e.Name)
}

// Is reports ErrCourseNotFound for errors.Is matching.
func (e *CourseNotFoundError) Is(target error) bool {
	return target == ErrCourseNotFound
}

// SearchError represents an infrastructure failure during search.
type SearchError struct {
	Component string // Component that failed (e.g., "embedder", "vector_db")
	Operation string // Operation that failed
	Query     string // Query that caused the error
	Err       error  // Underlying error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	msg := fmt.Sprintf("[%s] %s failed", e.Component, e.Operation)
	if e.Query != "" {
		query := e.Query
		if len(query) > 50 {
			query = query[:50] + "..."
		}
		msg += fmt.Sprintf(" (query: %q)", query)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is reports ErrSearchFailed for errors.Is matching.
func (e *SearchError) Is(target error) bool {
	return target == ErrSearchFailed
}

// NewSearchError creates a new SearchError.
func NewSearchError(component, operation, query string, err error) *SearchError {
	return &SearchError{
		Component: component,
		Operation: operation,
		Query:     query,
		Err:       err,
	}
}
