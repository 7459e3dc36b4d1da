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

// Package tools defines the retrieval tools the model can call during
// generation and the registry that dispatches those calls.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kadirpekel/lectern/pkg/course"
)

// ErrUnknownTool marks dispatch requests for unregistered tool names.
var ErrUnknownTool = errors.New("unknown tool")

// UnknownToolError reports which tool name failed to dispatch.
type UnknownToolError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %q", e.Name)
}

// Is reports ErrUnknownTool for errors.Is matching.
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// Tool is one model-callable operation.
//
// Execute returns the text handed back to the model plus the source
// citations backing it. Sources travel through return values; tools hold
// no mutable result state, so a tool instance is safe for concurrent
// queries.
type Tool interface {
	// Name returns the tool name as exposed to the model.
	Name() string

	// Description returns the tool description for the model.
	Description() string

	// Schema returns the JSON Schema of the tool's input.
	Schema() map[string]any

	// Execute runs the tool with the model-provided arguments.
	Execute(ctx context.Context, args map[string]any) (string, []course.Source, error)
}

// Registry holds the closed set of tools available during generation.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Tools returns all registered tools ordered by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Dispatch executes the named tool.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, []course.Source, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", nil, &UnknownToolError{Name: name}
	}
	return t.Execute(ctx, args)
}
