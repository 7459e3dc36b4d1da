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

// Package rag wires ingestion, retrieval and generation into one system.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kadirpekel/lectern/pkg/config"
	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/embedder"
	"github.com/kadirpekel/lectern/pkg/extractor"
	"github.com/kadirpekel/lectern/pkg/generator"
	"github.com/kadirpekel/lectern/pkg/llm"
	"github.com/kadirpekel/lectern/pkg/session"
	"github.com/kadirpekel/lectern/pkg/store"
	"github.com/kadirpekel/lectern/pkg/tools"
	"github.com/kadirpekel/lectern/pkg/vector"
)

// Analytics summarizes the ingested corpus.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// QueryResult is one answered query.
type QueryResult struct {
	Answer    string
	Sources   []course.Source
	SessionID string
}

// System is the assembled pipeline: document ingestion into the course
// store, tool-calling generation on top of it, and session history
// around it.
type System struct {
	cfg       *config.Config
	parser    *course.Parser
	embedder  embedder.Embedder
	provider  vector.Provider
	store     *store.CourseStore
	registry  *tools.Registry
	llm       llm.Provider
	generator *generator.Generator
	sessions  *session.Manager
}

// NewSystem builds the full pipeline from configuration.
func NewSystem(cfg *config.Config) (*System, error) {
	chunker, err := course.NewSentenceChunker(course.ChunkerConfig{
		Size:    cfg.Ingestion.ChunkSize,
		Overlap: cfg.Ingestion.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	provider, err := vector.New(cfg.Vector)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to create vector provider: %w", err)
	}

	courseStore := store.New(provider, emb, store.Config{
		MaxResults:       cfg.Search.MaxResults,
		CatalogThreshold: cfg.Search.CatalogThreshold,
	})

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewSearchTool(courseStore)); err != nil {
		return nil, err
	}
	if err := registry.Register(tools.NewOutlineTool(courseStore)); err != nil {
		return nil, err
	}

	model, err := llm.NewAnthropicProvider(cfg.LLM)
	if err != nil {
		_ = emb.Close()
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
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
	}, nil
}

// Store exposes the course store, mainly for tests and tooling.
func (s *System) Store() *store.CourseStore {
	return s.store
}

// AddCourseDocument ingests a single document: extract text, parse the
// course structure, chunk, and index.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*course.Course, int, error) {
	text, err := extractor.Extract(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	c, chunks, err := s.parser.Parse(path, text)
	if err != nil {
		return nil, 0, err
	}

	if err := s.store.AddCourse(ctx, c, chunks); err != nil {
		return nil, 0, err
	}

	slog.Info("Ingested course document",
		"path", path,
		"course", c.Title,
		"lessons", len(c.Lessons),
		"chunks", len(chunks))

	return c, len(chunks), nil
}

// AddCourseFolder ingests every supported document in a folder. Documents
// whose course title is already indexed are skipped; per-file failures are
// logged and do not stop the rest of the folder. It returns the number of
// newly added courses and chunks.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (int, int, error) {
	if clearExisting {
		slog.Info("Clearing existing course data", "folder", dir)
		for _, collection := range []string{store.CatalogCollection, store.ContentCollection} {
			if err := s.provider.DeleteCollection(ctx, collection); err != nil {
				return 0, 0, fmt.Errorf("failed to clear collection %s: %w", collection, err)
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read folder %s: %w", dir, err)
	}

	existing, err := s.store.ListCourseTitles(ctx)
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, title := range existing {
		seen[title] = true
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	coursesAdded, chunksAdded := 0, 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		if !extractor.CanExtract(path) {
			continue
		}

		text, err := extractor.Extract(path)
		if err != nil {
			slog.Warn("Skipping unreadable document", "path", path, "error", err)
			continue
		}
		c, chunks, err := s.parser.Parse(path, text)
		if err != nil {
			slog.Warn("Skipping malformed document", "path", path, "error", err)
			continue
		}
		if seen[c.Title] {
			slog.Debug("Course already ingested, skipping", "course", c.Title, "path", path)
			continue
		}

		if err := s.store.AddCourse(ctx, c, chunks); err != nil {
			slog.Warn("Failed to index document", "path", path, "error", err)
			continue
		}
		seen[c.Title] = true
		coursesAdded++
		chunksAdded += len(chunks)
		slog.Info("Ingested course document",
			"path", path, "course", c.Title, "chunks", len(chunks))
	}

	return coursesAdded, chunksAdded, nil
}

// Query answers a question with retrieval-augmented generation, threading
// conversation history through the session manager. An empty sessionID
// starts a new session.
func (s *System) Query(ctx context.Context, query, sessionID string) (*QueryResult, error) {
	if sessionID == "" {
		sessionID = s.sessions.NewSession()
	}
	history := s.sessions.History(sessionID)

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)
	answer, sources, err := s.generator.Generate(ctx, prompt, history, s.registry)
	if err != nil {
		return nil, err
	}

	s.sessions.AddExchange(sessionID, query, answer)

	return &QueryResult{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// ClearSession discards a session's history.
func (s *System) ClearSession(sessionID string) {
	s.sessions.Clear(sessionID)
}

// Analytics reports corpus statistics.
func (s *System) Analytics(ctx context.Context) (*Analytics, error) {
	titles, err := s.store.ListCourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	if titles == nil {
		titles = []string{}
	}
	return &Analytics{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}

// Close releases the pipeline's resources.
func (s *System) Close() error {
	var firstErr error
	for _, closer := range []func() error{
		s.llm.Close,
		s.embedder.Close,
		s.provider.Close,
	} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
