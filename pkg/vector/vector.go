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

// Package vector abstracts vector database backends.
//
// Embeddings are always computed externally (see the embedder package);
// providers only store and search pre-computed vectors.
package vector

import (
	"context"
	"fmt"

	"github.com/kadirpekel/lectern/pkg/config"
)

// Document is a vector record with its text and metadata.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// SearchResult is a scored hit from a similarity query.
// Score is cosine similarity in [-1, 1]; higher is more similar.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Provider is the storage contract for vector collections.
//
// Collections are created implicitly on first write. Metadata filters are
// exact-match over string values.
type Provider interface {
	// Upsert adds or replaces documents with pre-computed embeddings.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Query returns up to limit results most similar to the vector,
	// optionally restricted by a metadata filter.
	Query(ctx context.Context, collection string, vector []float32, limit int, filter map[string]string) ([]SearchResult, error)

	// Get fetches a document by ID. Returns nil when absent.
	Get(ctx context.Context, collection string, id string) (*SearchResult, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteByFilter removes all documents matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// Name returns the provider name.
	Name() string

	// Close releases resources and flushes any pending persistence.
	Close() error
}

// New creates a vector provider from configuration.
func New(cfg config.VectorConfig) (Provider, error) {
	switch cfg.Provider {
	case "chromem", "":
		return NewChromemProvider(ChromemConfig{
			PersistPath: cfg.PersistPath,
		})

	case "qdrant":
		return NewQdrantProvider(QdrantConfig{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})

	default:
		return nil, fmt.Errorf("unknown vector provider: %q", cfg.Provider)
	}
}
