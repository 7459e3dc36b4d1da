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

package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/lectern/pkg/course"
	"github.com/kadirpekel/lectern/pkg/llm"
	"github.com/kadirpekel/lectern/pkg/tools"
)

// fakeProvider returns canned responses in order and records every
// request it saw.
type fakeProvider struct {
	responses []*llm.Response
	requests  []*llm.Request
	err       error
}

func (p *fakeProvider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.requests) > len(p.responses) {
		return nil, fmt.Errorf("unexpected call %d", len(p.requests))
	}
	return p.responses[len(p.requests)-1], nil
}

func (p *fakeProvider) Model() string { return "fake" }
func (p *fakeProvider) Close() error  { return nil }

// fakeTool returns a fixed result and source.
type fakeTool struct {
	name    string
	result  string
	sources []course.Source
	err     error
	args    map[string]any
}

func (t *fakeTool) Name() string           { return t.name }
func (t *fakeTool) Description() string    { return "fake tool" }
func (t *fakeTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (t *fakeTool) Execute(ctx context.Context, args map[string]any) (string, []course.Source, error) {
	t.args = args
	return t.result, t.sources, t.err
}

func newRegistry(t *testing.T, tls ...tools.Tool) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	for _, tool := range tls {
		require.NoError(t, reg.Register(tool))
	}
	return reg
}

func TestGenerateDirectAnswer(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{Text: "General knowledge answer.", StopReason: "end_turn"},
	}}
	gen := New(provider)

	answer, sources, err := gen.Generate(context.Background(), "What is 2+2?", "",
		newRegistry(t, &fakeTool{name: "search_course_content"}))
	require.NoError(t, err)

	assert.Equal(t, "General knowledge answer.", answer)
	assert.Nil(t, sources)
	// No tool use means a single model call.
	require.Len(t, provider.requests, 1)
	require.Len(t, provider.requests[0].Tools, 1)
	assert.Equal(t, "search_course_content", provider.requests[0].Tools[0].Name)
}

func TestGenerateWithToolRound(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{
			ToolCalls:  []llm.ToolCall{{ID: "tu_1", Name: "search_course_content", Args: map[string]any{"query": "chunking"}}},
			StopReason: "tool_use",
		},
		{Text: "Chunking splits documents into pieces.", StopReason: "end_turn"},
	}}
	tool := &fakeTool{
		name:    "search_course_content",
		result:  "[Course - Lesson 1]\nchunking content",
		sources: []course.Source{{Text: "Course - Lesson 1", Link: "https://example.com/1"}},
	}
	gen := New(provider)

	answer, sources, err := gen.Generate(context.Background(), "What is chunking?", "", newRegistry(t, tool))
	require.NoError(t, err)

	assert.Equal(t, "Chunking splits documents into pieces.", answer)
	require.Len(t, sources, 1)
	assert.Equal(t, "Course - Lesson 1", sources[0].Text)

	// Tool received the model's arguments.
	assert.Equal(t, "chunking", tool.args["query"])

	require.Len(t, provider.requests, 2)

	// The follow-up call must not offer tools.
	second := provider.requests[1]
	assert.Empty(t, second.Tools)

	// user, assistant tool_use, tool result.
	require.Len(t, second.Messages, 3)
	assert.Equal(t, llm.RoleUser, second.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, second.Messages[1].Role)
	require.Len(t, second.Messages[1].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, second.Messages[2].Role)
	assert.Equal(t, "tu_1", second.Messages[2].ToolCallID)
	assert.Equal(t, "[Course - Lesson 1]\nchunking content", second.Messages[2].Content)
}

func TestGenerateHistoryInSystemPrompt(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{Text: "answer"},
	}}
	gen := New(provider)

	_, _, err := gen.Generate(context.Background(), "follow-up question",
		"User: Hi\nAssistant: Hello", newRegistry(t))
	require.NoError(t, err)

	system := provider.requests[0].System
	assert.Contains(t, system, "Previous conversation:\nUser: Hi\nAssistant: Hello")
}

func TestGenerateNoHistoryOmitsSection(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{{Text: "answer"}}}
	gen := New(provider)

	_, _, err := gen.Generate(context.Background(), "q", "", newRegistry(t))
	require.NoError(t, err)
	assert.NotContains(t, provider.requests[0].System, "Previous conversation")
}

func TestGenerateFollowupKeepsSystemPrompt(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "tu_1", Name: "t", Args: nil}}},
		{Text: "answer"},
	}}
	gen := New(provider)

	_, _, err := gen.Generate(context.Background(), "q", "User: a\nAssistant: b",
		newRegistry(t, &fakeTool{name: "t", result: "r"}))
	require.NoError(t, err)

	require.Len(t, provider.requests, 2)
	assert.Equal(t, provider.requests[0].System, provider.requests[1].System)
}

func TestGenerateSecondResponseToolCallsIgnored(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "tu_1", Name: "t"}}},
		{Text: "final answer", ToolCalls: []llm.ToolCall{{ID: "tu_2", Name: "t"}}},
	}}
	gen := New(provider)

	answer, _, err := gen.Generate(context.Background(), "q", "",
		newRegistry(t, &fakeTool{name: "t", result: "r"}))
	require.NoError(t, err)

	assert.Equal(t, "final answer", answer)
	// Hard cap at two model calls.
	assert.Len(t, provider.requests, 2)
}

func TestGenerateMultipleToolCalls(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "tu_1", Name: "a"},
			{ID: "tu_2", Name: "b"},
		}},
		{Text: "answer"},
	}}
	toolA := &fakeTool{name: "a", result: "ra", sources: []course.Source{{Text: "A"}}}
	toolB := &fakeTool{name: "b", result: "rb", sources: []course.Source{{Text: "B"}}}
	gen := New(provider)

	_, sources, err := gen.Generate(context.Background(), "q", "", newRegistry(t, toolA, toolB))
	require.NoError(t, err)

	require.Len(t, sources, 2)
	assert.Equal(t, "A", sources[0].Text)
	assert.Equal(t, "B", sources[1].Text)

	// One tool-result message per call, in call order.
	second := provider.requests[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, "tu_1", second.Messages[2].ToolCallID)
	assert.Equal(t, "tu_2", second.Messages[3].ToolCallID)
}

func TestGenerateProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("API overloaded")}
	gen := New(provider)

	_, _, err := gen.Generate(context.Background(), "q", "", newRegistry(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.True(t, strings.Contains(err.Error(), "API overloaded"))
}

func TestGenerateUnknownToolPropagates(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "tu_1", Name: "not_registered"}}},
	}}
	gen := New(provider)

	_, _, err := gen.Generate(context.Background(), "q", "", newRegistry(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrUnknownTool))
}

func TestGenerateToolErrorAborts(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "tu_1", Name: "t"}}},
	}}
	gen := New(provider)

	_, _, err := gen.Generate(context.Background(), "q", "",
		newRegistry(t, &fakeTool{name: "t", err: errors.New("search backend down")}))
	require.Error(t, err)
	// Only the first model call happened.
	assert.Len(t, provider.requests, 1)
}
