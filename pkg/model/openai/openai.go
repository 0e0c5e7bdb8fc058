// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai provides a model.Capability backed by the OpenAI Chat
// Completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/debater/pkg/httpclient"
	"github.com/kadirpekel/debater/pkg/model"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	vendorName     = "OpenAI"

	// Reasoning models spend hidden tokens before answering; budgets at or
	// above this threshold are scaled up, smaller ones are left unset.
	reasoningBudgetThreshold = 500
	reasoningBudgetFactor    = 10
)

// Config configures the OpenAI client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Option configures the OpenAI client.
type Option func(*Config)

// WithBaseURL sets a custom base URL (e.g., an OpenAI compatible gateway).
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets the transport used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = hc
	}
}

// Client is an OpenAI backend. A missing API key is not an error: the
// client reports itself unavailable and answers with an in-band notice.
type Client struct {
	httpClient *httpclient.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
}

// New creates a new OpenAI client.
func New(cfg Config, opts ...Option) *Client {
	for _, opt := range opts {
		opt(&cfg)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	hcOpts := []httpclient.Option{
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
	}
	if cfg.HTTPClient != nil {
		hcOpts = append(hcOpts, httpclient.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		httpClient: httpclient.New(hcOpts...),
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		timeout:    cfg.Timeout,
	}
}

// Provider returns the provider type.
func (c *Client) Provider() model.Provider {
	return model.ProviderOpenAI
}

// Available reports whether an API key is configured.
func (c *Client) Available(context.Context) bool {
	return c.apiKey != ""
}

// ListModels returns no models; callers type the model id.
func (c *Client) ListModels(context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{}, nil
}

// Generate streams a chat completion.
func (c *Client) Generate(ctx context.Context, conv []model.Message, opts model.GenerateOptions, stream bool) iter.Seq2[string, error] {
	if c.apiKey == "" {
		return model.Single(model.NotConfiguredText(vendorName))
	}

	return func(yield func(string, error) bool) {
		ctx, cancel := model.WithTimeout(ctx, c.timeout)
		defer cancel()

		fail := func(err error) {
			yield("", model.NewGenerationError(model.ProviderOpenAI, opts.Model, err))
		}

		body, err := json.Marshal(buildRequest(conv, opts, stream))
		if err != nil {
			fail(fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			fail(fmt.Errorf("failed to create request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		if stream {
			httpReq.Header.Set("Accept", "text/event-stream")
		}

		resp, err := c.httpClient.Do(httpReq)
		if resp != nil {
			defer resp.Body.Close()
		}
		if err != nil {
			fail(err)
			return
		}

		if !stream {
			var out completionResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				fail(fmt.Errorf("failed to decode response: %w", err))
				return
			}
			if out.Error != nil {
				fail(out.Error)
				return
			}
			if len(out.Choices) > 0 && out.Choices[0].Message.Content != "" {
				yield(out.Choices[0].Message.Content, nil)
			}
			return
		}

		for data, err := range model.SSEData(resp.Body) {
			if err != nil {
				fail(err)
				return
			}
			var chunk streamChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				fail(chunk.Error)
				return
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

// buildRequest maps a conversation onto the Chat Completions payload,
// applying per-family parameter rules:
//   - reasoning models (o1, o3, nano) take no temperature and get a scaled
//     max_completion_tokens, or none for small budgets
//   - gpt-4o and gpt-5 use max_completion_tokens
//   - everything else uses max_tokens
func buildRequest(conv []model.Message, opts model.GenerateOptions, stream bool) *chatRequest {
	req := &chatRequest{
		Model:    opts.Model,
		Messages: make([]chatMessage, 0, len(conv)),
		Stream:   stream,
	}
	for _, m := range conv {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	family := classify(opts.Model)

	if opts.MaxTokens != nil {
		n := *opts.MaxTokens
		switch family {
		case familyReasoning:
			if n >= reasoningBudgetThreshold {
				scaled := n * reasoningBudgetFactor
				req.MaxCompletionTokens = &scaled
			}
		case familyCompletionTokens:
			req.MaxCompletionTokens = &n
		default:
			req.MaxTokens = &n
		}
	}

	if family != familyReasoning && opts.Temperature != nil {
		t := *opts.Temperature
		req.Temperature = &t
	}

	return req
}

type modelFamily int

const (
	familyLegacy modelFamily = iota
	familyCompletionTokens
	familyReasoning
)

func classify(modelID string) modelFamily {
	id := strings.ToLower(modelID)
	switch {
	case containsAny(id, "o1", "o3", "nano"):
		return familyReasoning
	case containsAny(id, "gpt-4o", "gpt-5"):
		return familyCompletionTokens
	default:
		return familyLegacy
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var _ model.Capability = (*Client)(nil)
