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

package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the working directory if present.
// Missing files are not an error.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// applyEnv overrides secrets and connection settings from the environment.
// Environment always wins over file values for credentials.
func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Embedder.APIKey == "" {
		c.Embedder.APIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && c.Embedder.BaseURL == "" {
		c.Embedder.BaseURL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" && c.Vector.APIKey == "" {
		c.Vector.APIKey = v
	}
}
