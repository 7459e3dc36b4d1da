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
	"errors"
	"fmt"
)

// ErrMalformedDocument marks documents that cannot be parsed into a course.
var ErrMalformedDocument = errors.New("malformed course document")

// ParseError describes why a course document could not be parsed.
type ParseError struct {
	FilePath string // File path if applicable
	Message  string // Error message
	Err      error  // Underlying error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse failed: %s", e.Message)
	if e.FilePath != "" {
		msg += fmt.Sprintf(" (file: %s)", e.FilePath)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports ErrMalformedDocument for errors.Is matching.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// NewParseError creates a new ParseError.
func NewParseError(filePath, message string, err error) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Message:  message,
		Err:      err,
	}
}
