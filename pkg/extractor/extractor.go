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

// Package extractor reads course documents into plain text.
//
// Transcripts are usually plain text, but exported course materials also
// arrive as PDF or DOCX. The extractor normalizes all of them to the text
// layout the course parser expects.
package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the file types the extractor handles.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
}

// CanExtract checks whether the file type is supported.
func CanExtract(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Extract reads the document at path and returns its text content.
func Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil

	case ".pdf":
		return extractPDF(path)

	case ".docx":
		return extractDOCX(path)

	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}
