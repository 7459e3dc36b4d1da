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

// Package llm is the provider-neutral boundary to generation models.
package llm

import "context"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a model conversation.
type Message struct {
	Role    string
	Content string

	// ToolCalls carried by an assistant message.
	ToolCalls []ToolCall

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string
}

// ToolCall is a model request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolDefinition describes a callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one generation call.
type Request struct {
	// System prompt, sent out-of-band from the message list.
	System string

	// Messages in conversation order.
	Messages []Message

	// Tools offered for this call. Empty means the model cannot call
	// tools in this round.
	Tools []ToolDefinition
}

// Response is the model's reply.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// Provider generates model responses.
type Provider interface {
	// Generate runs one model call.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Model returns the model name being used.
	Model() string

	// Close releases any resources held by the provider.
	Close() error
}
