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

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kadirpekel/lectern/pkg/config"
)

// AnthropicProvider implements Provider against the Anthropic messages
// API over raw HTTP.
type AnthropicProvider struct {
	cfg    config.LLMConfig
	client *http.Client
}

// anthropicTool is a tool definition in Anthropic wire format.
type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

// anthropicMessage content is either a plain string or a content-block
// array.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// anthropicContent is one content block: "text", "tool_use" or
// "tool_result".
type anthropicContent struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropicProvider creates a provider from configuration.
func NewAnthropicProvider(cfg config.LLMConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic")
	}
	if cfg.Host == "" {
		cfg.Host = "https://api.anthropic.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120
	}

	return &AnthropicProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

// Model returns the model name being used.
func (p *AnthropicProvider) Model() string {
	return p.cfg.Model
}

// Close releases resources.
func (p *AnthropicProvider) Close() error {
	return nil
}

// Generate runs one model call.
func (p *AnthropicProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	wireReq := p.buildRequest(req)

	wireResp, err := p.makeRequest(ctx, wireReq)
	if err != nil {
		return nil, err
	}
	if wireResp.Error != nil {
		return nil, fmt.Errorf("Anthropic API error: %s", wireResp.Error.Message)
	}

	resp := &Response{StopReason: wireResp.StopReason}
	for _, content := range wireResp.Content {
		switch content.Type {
		case "text":
			resp.Text += content.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:   content.ID,
				Name: content.Name,
				Args: content.Input,
			})
		}
	}

	return resp, nil
}

// buildRequest converts the neutral request to Anthropic wire format.
// Tool results become user-role tool_result blocks; assistant tool calls
// become text + tool_use block arrays.
func (p *AnthropicProvider) buildRequest(req *Request) anthropicRequest {
	messages := make([]anthropicMessage, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch {
		case msg.Role == RoleTool:
			messages = append(messages, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})

		case msg.Role == RoleAssistant && len(msg.ToolCalls) > 0:
			contents := []anthropicContent{}
			if msg.Content != "" {
				contents = append(contents, anthropicContent{
					Type: "text",
					Text: msg.Content,
				})
			}
			for _, call := range msg.ToolCalls {
				contents = append(contents, anthropicContent{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Args,
				})
			}
			messages = append(messages, anthropicMessage{
				Role:    "assistant",
				Content: contents,
			})

		default:
			messages = append(messages, anthropicMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	wireReq := anthropicRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		System:      req.System,
	}

	if len(req.Tools) > 0 {
		wireReq.Tools = make([]anthropicTool, len(req.Tools))
		for i, tool := range req.Tools {
			wireReq.Tools[i] = anthropicTool{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			}
		}
	}

	return wireReq
}

// makeRequest posts to /v1/messages with retry on rate limits and server
// errors. Retry-After is honored when present, exponential backoff
// otherwise.
func (p *AnthropicProvider) makeRequest(ctx context.Context, wireReq anthropicRequest) (*anthropicResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		resp, retryable, retryAfter, err := p.attemptRequest(ctx, wireReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable || attempt >= p.cfg.MaxRetries {
			return nil, err
		}

		delay := retryAfter
		if delay <= 0 {
			delay = time.Duration(1<<attempt) * time.Second
		}
		slog.Warn("Anthropic request failed, retrying",
			"attempt", attempt+1,
			"max_retries", p.cfg.MaxRetries,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// attemptRequest makes a single HTTP request attempt.
func (p *AnthropicProvider) attemptRequest(ctx context.Context, wireReq anthropicRequest) (*anthropicResponse, bool, time.Duration, error) {
	jsonData, err := json.Marshal(wireReq)
	if err != nil {
		return nil, false, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.Host+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, false, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, false, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var retryAfter time.Duration
		if ra := resp.Header.Get("retry-after"); ra != "" {
			if d, err := time.ParseDuration(ra + "s"); err == nil {
				retryAfter = d
			}
		}
		retryable := isRetryableStatus(resp.StatusCode)
		return nil, retryable, retryAfter,
			fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var wireResp anthropicResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, false, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return &wireResp, false, 0, nil
}

// isRetryableStatus determines if an HTTP status code is retryable.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// Ensure AnthropicProvider implements Provider.
var _ Provider = (*AnthropicProvider)(nil)
