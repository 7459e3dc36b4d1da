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
	"strings"
)

// ChunkerConfig configures sentence-aware chunking.
type ChunkerConfig struct {
	// Size is the target chunk size in characters.
	// Default: 800
	Size int `yaml:"size,omitempty"`

	// Overlap is the overlap between adjacent chunks in characters.
	// Overlap is realized in whole sentences: the trailing sentences of a
	// chunk covering at least Overlap characters reopen the next chunk.
	// Default: 100
	Overlap int `yaml:"overlap,omitempty"`
}

// SetDefaults applies default values.
func (c *ChunkerConfig) SetDefaults() {
	if c.Size <= 0 {
		c.Size = 800
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
}

// Validate checks the configuration for errors.
func (c *ChunkerConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("overlap must be non-negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("overlap (%d) must be less than size (%d)", c.Overlap, c.Size)
	}
	return nil
}

// sentenceRe matches one sentence including its terminator and any closing
// quotes or brackets. A trailing fragment without a terminator also counts
// as a sentence so no text is dropped.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*|[^.!?]+$`)

// SentenceChunker splits text into overlapping chunks on sentence
// boundaries. Sentences are never split: a chunk closes when adding the
// next sentence would exceed the size budget, and a single sentence longer
// than the budget becomes a chunk of its own.
//
// Chunking is deterministic: the same input always yields the same chunks.
type SentenceChunker struct {
	cfg ChunkerConfig
}

// NewSentenceChunker creates a chunker from configuration.
func NewSentenceChunker(cfg ChunkerConfig) (*SentenceChunker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chunker config: %w", err)
	}
	return &SentenceChunker{cfg: cfg}, nil
}

// Config returns the chunker configuration.
func (c *SentenceChunker) Config() ChunkerConfig {
	return c.cfg
}

// Chunk splits text into overlapping pieces. Empty or whitespace-only
// input yields no chunks; input within the size budget yields exactly one.
func (c *SentenceChunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	emit := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences covering the
		// overlap budget.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0 && carryLen < c.cfg.Overlap; i-- {
			carry = append([]string{current[i]}, carry...)
			carryLen += len(current[i]) + 1
		}
		// Carrying the whole chunk forward would never make progress.
		if len(carry) == len(current) {
			carry = nil
			carryLen = 0
		}
		current = carry
		currentLen = carryLen
	}

	for _, s := range sentences {
		if currentLen > 0 && currentLen+len(s)+1 > c.cfg.Size {
			emit()
			// The carried overlap must still leave room for the sentence;
			// drop it when it would not, so the carry alone never becomes
			// a chunk and no chunk outgrows the size budget.
			if currentLen > 0 && currentLen+len(s)+1 > c.cfg.Size {
				current = nil
				currentLen = 0
			}
		}
		current = append(current, s)
		currentLen += len(s) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// splitSentences breaks text into trimmed sentences, preserving order.
func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
