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

// Package generator orchestrates model calls around the retrieval tools.
//
// The flow is deliberately narrow: one model call with tools offered, and
// if the model requests tool use, exactly one follow-up call carrying the
// tool results and no tools. There is no multi-round loop.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/llm"
	"github.com/kadirpekel/lectern/pkg/tools"
)

// ErrGenerationFailed marks model-provider failures during generation.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationError wraps a provider failure with the call stage it
// happened in.
type GenerationError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports ErrGenerationFailed for errors.Is matching.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// systemPrompt is the static guidance prefixed to every generation call.
const systemPrompt = `You are an AI assistant specialized in course materials and educational content.

Tool usage:
- Use search_course_content for questions about specific course content or lesson details.
- Use get_course_outline for questions about a course's structure, its lessons, or links.
- One tool round per query maximum. Synthesize the tool results into your answer.
- If a search returns no results, state that clearly without speculating.

Responses:
- Be brief, concise and focused on the question.
- Do not mention the search process or the tools in your answer.
- Answer general knowledge questions directly without searching.`

// Generator runs the retrieval-augmented generation loop.
type Generator struct {
	provider llm.Provider
}

// New creates a generator on top of a model provider.
func New(provider llm.Provider) *Generator {
	return &Generator{provider: provider}
}

// Generate answers a query, optionally grounding the answer through one
// round of tool calls. It returns the answer text plus the sources the
// tools reported.
func (g *Generator) Generate(ctx context.Context, query, history string, reg *tools.Registry) (string, []course.Source, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []llm.Message{{Role: llm.RoleUser, Content: query}}

	first, err := g.provider.Generate(ctx, &llm.Request{
		System:   system,
		Messages: messages,
		Tools:    toolDefinitions(reg),
	})
	if err != nil {
		return "", nil, &GenerationError{Stage: "initial call", Err: err}
	}

	if len(first.ToolCalls) == 0 {
		return first.Text, nil, nil
	}

	messages = append(messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   first.Text,
		ToolCalls: first.ToolCalls,
	})

	var sources []course.Source
	for _, call := range first.ToolCalls {
		slog.Debug("Dispatching tool call", "tool", call.Name, "id", call.ID)

		text, toolSources, err := reg.Dispatch(ctx, call.Name, call.Args)
		if err != nil {
			return "", nil, err
		}
		sources = append(sources, toolSources...)

		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    text,
			ToolCallID: call.ID,
		})
	}

	// Follow-up call carries no tools; any tool calls in its response
	// are ignored.
	second, err := g.provider.Generate(ctx, &llm.Request{
		System:   system,
		Messages: messages,
	})
	if err != nil {
		return "", nil, &GenerationError{Stage: "follow-up call", Err: err}
	}

	return second.Text, sources, nil
}

// toolDefinitions converts the registry's tools into model-facing
// definitions.
func toolDefinitions(reg *tools.Registry) []llm.ToolDefinition {
	if reg == nil {
		return nil
	}

	registered := reg.Tools()
	defs := make([]llm.ToolDefinition, 0, len(registered))
	for _, t := range registered {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return defs
}
