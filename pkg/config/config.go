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

// Package config defines the explicit runtime configuration.
//
// All components receive their configuration through this object; there is
// no import-time global state. Secrets (API keys) are taken from the
// environment, everything else from an optional YAML file with defaults
// applied per section.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object.
type Config struct {
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Embedder  EmbedderConfig  `yaml:"embedder,omitempty"`
	Vector    VectorConfig    `yaml:"vector,omitempty"`
	Ingestion IngestionConfig `yaml:"ingestion,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
}

// LLMConfig configures the generation model.
type LLMConfig struct {
	// Provider name. Currently only "anthropic".
	Provider string `yaml:"provider,omitempty"`

	// Model name (default: claude-sonnet-4-20250514).
	Model string `yaml:"model,omitempty"`

	// APIKey is taken from ANTHROPIC_API_KEY when empty.
	APIKey string `yaml:"api_key,omitempty"`

	// Host is the API base URL.
	Host string `yaml:"host,omitempty"`

	// MaxTokens for a single response.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Temperature for generation. Zero keeps answers deterministic.
	Temperature float64 `yaml:"temperature"`

	// Timeout in seconds for API requests.
	Timeout int `yaml:"timeout,omitempty"`

	// MaxRetries for rate-limited or failed requests.
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	// Provider name: "ollama" or "openai".
	Provider string `yaml:"provider,omitempty"`

	// Model name (default depends on provider).
	Model string `yaml:"model,omitempty"`

	// BaseURL for the embeddings API.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is taken from OPENAI_API_KEY when empty (openai only).
	APIKey string `yaml:"api_key,omitempty"`

	// Dimension of embeddings (0 = model default).
	Dimension int `yaml:"dimension,omitempty"`
}

// VectorConfig configures the vector database backend.
type VectorConfig struct {
	// Provider name: "chromem" (embedded, default) or "qdrant".
	Provider string `yaml:"provider,omitempty"`

	// PersistPath for chromem file persistence (empty = memory only).
	PersistPath string `yaml:"persist_path,omitempty"`

	// Host and Port for qdrant.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// APIKey for authenticated qdrant access.
	APIKey string `yaml:"api_key,omitempty"`

	// UseTLS enables TLS for qdrant connections.
	UseTLS bool `yaml:"use_tls,omitempty"`
}

// IngestionConfig configures document chunking.
type IngestionConfig struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"`
}

// SearchConfig configures retrieval behavior.
type SearchConfig struct {
	// MaxResults returned per content search.
	MaxResults int `yaml:"max_results,omitempty"`

	// CatalogThreshold is the minimum similarity for fuzzy course-name
	// resolution against the catalog.
	CatalogThreshold float32 `yaml:"catalog_threshold,omitempty"`
}

// SessionConfig configures conversation state.
type SessionConfig struct {
	// MaxHistory is the number of exchanges (user+assistant pairs)
	// remembered per session.
	MaxHistory int `yaml:"max_history,omitempty"`

	// MaxSessions bounds the number of concurrent sessions. Creating a
	// session past the cap evicts the least recently used one.
	MaxSessions int `yaml:"max_sessions,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// DocsFolder is ingested on startup.
	DocsFolder string `yaml:"docs_folder,omitempty"`

	// Watch re-ingests documents when the docs folder changes.
	Watch bool `yaml:"watch,omitempty"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.Host == "" {
		c.LLM.Host = "https://api.anthropic.com"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 120
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 2
	}

	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "ollama"
	}

	if c.Vector.Provider == "" {
		c.Vector.Provider = "chromem"
	}
	if c.Vector.Host == "" {
		c.Vector.Host = "localhost"
	}
	if c.Vector.Port == 0 {
		c.Vector.Port = 6334
	}

	if c.Ingestion.ChunkSize <= 0 {
		c.Ingestion.ChunkSize = 800
	}
	if c.Ingestion.ChunkOverlap < 0 {
		c.Ingestion.ChunkOverlap = 0
	}
	if c.Ingestion.ChunkOverlap == 0 {
		c.Ingestion.ChunkOverlap = 100
	}

	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 5
	}
	if c.Search.CatalogThreshold <= 0 {
		c.Search.CatalogThreshold = 0.3
	}

	if c.Session.MaxHistory <= 0 {
		c.Session.MaxHistory = 2
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 256
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.DocsFolder == "" {
		c.Server.DocsFolder = "docs"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}

	switch c.Embedder.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported embedder provider: %q", c.Embedder.Provider)
	}

	switch c.Vector.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vector provider: %q", c.Vector.Provider)
	}

	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if c.Ingestion.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must be non-negative, got %d", c.Ingestion.ChunkOverlap)
	}
	if c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be less than chunk_size (%d)",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.Search.MaxResults)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// LoadConfig reads a YAML config file, applies environment overrides,
// defaults, and validates. An empty path yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
