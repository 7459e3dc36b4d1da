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

// Package session keeps bounded per-conversation history.
package session

import (
	"container/list"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kadirpekel/lectern/pkg/config"
)

// exchange is one user/assistant turn pair.
type exchange struct {
	user      string
	assistant string
}

type sessionState struct {
	id        string
	exchanges []exchange

	// element in the manager's recency list.
	elem *list.Element
}

// Manager stores conversation sessions in memory. Each session keeps at
// most MaxHistory exchanges; the manager keeps at most MaxSessions
// sessions and evicts the least recently used past the cap.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	// order holds sessions most recently used first.
	order       *list.List
	maxHistory  int
	maxSessions int
}

// NewManager creates a session manager from configuration.
func NewManager(cfg config.SessionConfig) *Manager {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 2
	}
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 256
	}

	return &Manager{
		sessions:    make(map[string]*sessionState),
		order:       list.New(),
		maxHistory:  maxHistory,
		maxSessions: maxSessions,
	}
}

// NewSession creates a session and returns its ID.
func (m *Manager) NewSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	s := &sessionState{id: id}
	s.elem = m.order.PushFront(s)
	m.sessions[id] = s

	for m.order.Len() > m.maxSessions {
		oldest := m.order.Back()
		evicted := oldest.Value.(*sessionState)
		m.order.Remove(oldest)
		delete(m.sessions, evicted.id)
	}

	return id
}

// AddExchange records one user/assistant turn pair. Unknown session IDs
// are created implicitly so a client can persist its own ID across
// restarts of the manager.
func (m *Manager) AddExchange(id, user, assistant string) {
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = &sessionState{id: id}
		s.elem = m.order.PushFront(s)
		m.sessions[id] = s
	} else {
		m.order.MoveToFront(s.elem)
	}

	s.exchanges = append(s.exchanges, exchange{user: user, assistant: assistant})
	if len(s.exchanges) > m.maxHistory {
		s.exchanges = s.exchanges[len(s.exchanges)-m.maxHistory:]
	}
}

// History renders a session's exchanges as alternating "User:" and
// "Assistant:" lines. Unknown or empty sessions render as "".
func (m *Manager) History(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || len(s.exchanges) == 0 {
		return ""
	}

	lines := make([]string, 0, len(s.exchanges)*2)
	for _, ex := range s.exchanges {
		lines = append(lines, fmt.Sprintf("User: %s", ex.user))
		lines = append(lines, fmt.Sprintf("Assistant: %s", ex.assistant))
	}
	return strings.Join(lines, "\n")
}

// Clear removes a session entirely. Clearing an unknown ID is a no-op.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	m.order.Remove(s.elem)
	delete(m.sessions, id)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
