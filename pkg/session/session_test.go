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

package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/lectern/pkg/config"
)

func TestHistoryFormat(t *testing.T) {
	m := NewManager(config.SessionConfig{MaxHistory: 2})

	id := m.NewSession()
	require.NotEmpty(t, id)

	m.AddExchange(id, "What is RAG?", "Retrieval-augmented generation.")
	m.AddExchange(id, "Why use it?", "Grounded answers.")

	want := "User: What is RAG?\n" +
		"Assistant: Retrieval-augmented generation.\n" +
		"User: Why use it?\n" +
		"Assistant: Grounded answers."
	assert.Equal(t, want, m.History(id))
}

func TestHistoryUnknownSession(t *testing.T) {
	m := NewManager(config.SessionConfig{})
	assert.Equal(t, "", m.History("missing"))
}

func TestHistoryEmptySession(t *testing.T) {
	m := NewManager(config.SessionConfig{})
	id := m.NewSession()
	assert.Equal(t, "", m.History(id))
}

func TestMaxHistoryTrimsOldest(t *testing.T) {
	m := NewManager(config.SessionConfig{MaxHistory: 2})
	id := m.NewSession()

	m.AddExchange(id, "q1", "a1")
	m.AddExchange(id, "q2", "a2")
	m.AddExchange(id, "q3", "a3")

	history := m.History(id)
	assert.NotContains(t, history, "q1")
	assert.Contains(t, history, "q2")
	assert.Contains(t, history, "q3")
}

func TestClear(t *testing.T) {
	m := NewManager(config.SessionConfig{})
	id := m.NewSession()
	m.AddExchange(id, "q", "a")

	m.Clear(id)
	assert.Equal(t, "", m.History(id))
	assert.Equal(t, 0, m.Len())

	// Clearing twice is fine.
	m.Clear(id)
}

func TestAddExchangeCreatesUnknownSession(t *testing.T) {
	m := NewManager(config.SessionConfig{})

	m.AddExchange("client-chosen-id", "q", "a")
	assert.Contains(t, m.History("client-chosen-id"), "User: q")
}

func TestAddExchangeEmptyIDIgnored(t *testing.T) {
	m := NewManager(config.SessionConfig{})
	m.AddExchange("", "q", "a")
	assert.Equal(t, 0, m.Len())
}

func TestMaxSessionsEvictsLRU(t *testing.T) {
	m := NewManager(config.SessionConfig{MaxSessions: 3})

	first := m.NewSession()
	second := m.NewSession()
	third := m.NewSession()
	m.AddExchange(first, "q", "a")
	m.AddExchange(second, "q", "a")
	m.AddExchange(third, "q", "a")

	// Touch the first session so the second becomes least recently used.
	m.AddExchange(first, "q2", "a2")

	fourth := m.NewSession()
	assert.Equal(t, 3, m.Len())

	assert.NotEqual(t, "", m.History(first))
	assert.Equal(t, "", m.History(second))
	assert.NotEqual(t, "", m.History(third))
	assert.NotNil(t, fourth)
}

func TestManySessionsStayBounded(t *testing.T) {
	m := NewManager(config.SessionConfig{MaxSessions: 10})

	for i := 0; i < 100; i++ {
		id := m.NewSession()
		m.AddExchange(id, fmt.Sprintf("q%d", i), "a")
	}
	assert.Equal(t, 10, m.Len())
}

func TestSessionIDsAreUnique(t *testing.T) {
	m := NewManager(config.SessionConfig{})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := m.NewSession()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
