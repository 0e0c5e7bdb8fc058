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

// Package ollama provides a model.Capability backed by a local Ollama
// server.
//
//   - Availability and model listing use /api/tags
//   - Generation uses /api/chat, streaming NDJSON
//   - Thinking output is dropped; only message content is yielded
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/debater/pkg/httpclient"
	"github.com/kadirpekel/debater/pkg/model"
)

const (
	defaultBaseURL      = "http://localhost:11434"
	defaultCheckTimeout = 2 * time.Second
	defaultCheckTTL     = 30 * time.Second

	// Thinking models spend tokens before any content; the requested
	// budget is scaled so the visible answer is not cut off.
	numPredictFactor = 10

	unavailableText   = "Error: Ollama not available. Make sure it's running locally."
	emptyResponseText = "[Model returned empty response]"
)

// Config configures the Ollama client.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434)
	BaseURL string

	// Timeout bounds a generation call (default: model.DefaultTimeout)
	Timeout time.Duration

	// CheckTimeout bounds the /api/tags availability check (default: 2s)
	CheckTimeout time.Duration

	// CheckTTL is how long a check result is reused (default: 30s)
	CheckTTL time.Duration

	MaxRetries int
	HTTPClient *http.Client
}

// Client is an Ollama backend.
type Client struct {
	httpClient   *httpclient.Client
	baseURL      string
	timeout      time.Duration
	checkTimeout time.Duration
	checkTTL     time.Duration

	mu        sync.Mutex
	available bool
	checkedAt time.Time
	inflight  *tagsCheck
}

// tagsCheck is one /api/tags check shared by every caller that arrives while
// it runs.
type tagsCheck struct {
	done chan struct{}
	ok   bool
}

// New creates a new Ollama client. No network call is made.
func New(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	checkTimeout := cfg.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	checkTTL := cfg.CheckTTL
	if checkTTL <= 0 {
		checkTTL = defaultCheckTTL
	}

	hcOpts := []httpclient.Option{httpclient.WithMaxRetries(cfg.MaxRetries)}
	if cfg.HTTPClient != nil {
		hcOpts = append(hcOpts, httpclient.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		httpClient:   httpclient.New(hcOpts...),
		baseURL:      baseURL,
		timeout:      cfg.Timeout,
		checkTimeout: checkTimeout,
		checkTTL:     checkTTL,
	}
}

func (c *Client) Provider() model.Provider {
	return model.ProviderOllama
}

// Available checks /api/tags and caches the answer for CheckTTL.
//
// The check runs detached from ctx, so a caller that gives up early
// neither waits for it nor poisons the cached answer for other callers.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	if !c.checkedAt.IsZero() && time.Since(c.checkedAt) < c.checkTTL {
		ok := c.available
		c.mu.Unlock()
		return ok
	}
	p := c.inflight
	if p == nil {
		p = &tagsCheck{done: make(chan struct{})}
		c.inflight = p
		go c.runCheck(context.WithoutCancel(ctx), p)
	}
	c.mu.Unlock()

	select {
	case <-p.done:
		return p.ok
	case <-ctx.Done():
		return false
	}
}

func (c *Client) runCheck(ctx context.Context, p *tagsCheck) {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()
	_, err := c.tags(ctx)

	c.mu.Lock()
	c.available = err == nil
	c.checkedAt = time.Now()
	c.inflight = nil
	p.ok = c.available
	c.mu.Unlock()
	close(p.done)
}

// ListModels returns the locally pulled models, or none when the server
// is unreachable.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if !c.Available(ctx) {
		return []model.ModelInfo{}, nil
	}

	tags, err := c.tags(ctx)
	if err != nil {
		return []model.ModelInfo{}, nil
	}

	models := make([]model.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, model.ModelInfo{
			ID:          m.Name,
			Name:        m.Name,
			Provider:    model.ProviderOllama,
			Description: "Local model: " + formatSize(m.Size),
		})
	}
	return models, nil
}

func (c *Client) tags(ctx context.Context) (*tagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return &out, nil
}

// Generate calls /api/chat.
func (c *Client) Generate(ctx context.Context, conv []model.Message, opts model.GenerateOptions, stream bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !c.Available(ctx) {
			if err := ctx.Err(); err != nil {
				yield("", model.NewGenerationError(model.ProviderOllama, opts.Model, err))
				return
			}
			yield(unavailableText, nil)
			return
		}

		ctx, cancel := model.WithTimeout(ctx, c.timeout)
		defer cancel()

		fail := func(err error) {
			yield("", model.NewGenerationError(model.ProviderOllama, opts.Model, err))
		}

		body, err := json.Marshal(buildRequest(conv, opts, stream))
		if err != nil {
			fail(fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			fail(fmt.Errorf("failed to create request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if resp != nil {
			defer resp.Body.Close()
		}
		if err != nil {
			fail(err)
			return
		}

		if !stream {
			var out chatResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				fail(fmt.Errorf("failed to decode response: %w", err))
				return
			}
			if out.Error != "" {
				fail(fmt.Errorf("%s", out.Error))
				return
			}
			if out.Message != nil && out.Message.Content != "" {
				yield(out.Message.Content, nil)
			} else {
				yield(emptyResponseText, nil)
			}
			return
		}

		for line, err := range model.Lines(resp.Body) {
			if err != nil {
				fail(err)
				return
			}
			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if chunk.Error != "" {
				fail(fmt.Errorf("%s", chunk.Error))
				return
			}
			if chunk.Message != nil && chunk.Message.Content != "" {
				if !yield(chunk.Message.Content, nil) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
	}
}

func buildRequest(conv []model.Message, opts model.GenerateOptions, stream bool) *chatRequest {
	req := &chatRequest{
		Model:    opts.Model,
		Stream:   stream,
		Messages: make([]chatMessage, 0, len(conv)),
	}
	for _, m := range conv {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	options := make(map[string]any)
	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		options["num_predict"] = *opts.MaxTokens * numPredictFactor
	}
	if len(options) > 0 {
		req.Options = options
	}
	return req
}

func formatSize(bytes int64) string {
	const unit = 1000
	if bytes <= 0 {
		return "unknown size"
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

var _ model.Capability = (*Client)(nil)
