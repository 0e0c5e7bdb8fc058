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

// Package anthropic provides a model.Capability backed by the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/debater/pkg/httpclient"
	"github.com/kadirpekel/debater/pkg/model"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
	vendorName       = "Anthropic"
)

// Config configures the Anthropic client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is an Anthropic backend.
type Client struct {
	httpClient *httpclient.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
	log        *slog.Logger
}

// New creates a new Anthropic client. It never fails; without an API key
// the client reports itself unavailable.
func New(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	hcOpts := []httpclient.Option{
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
	}
	if cfg.HTTPClient != nil {
		hcOpts = append(hcOpts, httpclient.WithHTTPClient(cfg.HTTPClient))
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient: httpclient.New(hcOpts...),
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		timeout:    cfg.Timeout,
		log:        log,
	}
}

func (c *Client) Provider() model.Provider {
	return model.ProviderAnthropic
}

func (c *Client) Available(context.Context) bool {
	return c.apiKey != ""
}

// ListModels returns no models; callers type the model id.
func (c *Client) ListModels(context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{}, nil
}

// Generate calls /v1/messages. System messages are lifted into the
// request's system field.
func (c *Client) Generate(ctx context.Context, conv []model.Message, opts model.GenerateOptions, stream bool) iter.Seq2[string, error] {
	if c.apiKey == "" {
		return model.Single(model.NotConfiguredText(vendorName))
	}

	return func(yield func(string, error) bool) {
		ctx, cancel := model.WithTimeout(ctx, c.timeout)
		defer cancel()

		fail := func(err error) {
			yield("", model.NewGenerationError(model.ProviderAnthropic, opts.Model, err))
		}

		body, err := json.Marshal(buildRequest(c.log, conv, opts, stream))
		if err != nil {
			fail(fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			fail(fmt.Errorf("failed to create request: %w", err))
			return
		}
		c.setHeaders(httpReq)

		resp, err := c.httpClient.Do(httpReq)
		if resp != nil {
			defer resp.Body.Close()
		}
		if err != nil {
			fail(err)
			return
		}

		if !stream {
			var out messageResponse
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				fail(fmt.Errorf("failed to decode response: %w", err))
				return
			}
			if out.Error != nil {
				fail(out.Error)
				return
			}
			var text strings.Builder
			for _, block := range out.Content {
				if block.Type == "text" {
					text.WriteString(block.Text)
				}
			}
			if text.Len() > 0 {
				yield(text.String(), nil)
			}
			return
		}

		for data, err := range model.SSEData(resp.Body) {
			if err != nil {
				fail(err)
				return
			}
			var event streamEvent
			if err := json.Unmarshal(data, &event); err != nil {
				continue
			}
			switch event.Type {
			case "content_block_delta":
				if event.Delta == nil || event.Delta.Type != "text_delta" || event.Delta.Text == "" {
					continue
				}
				if !yield(event.Delta.Text, nil) {
					return
				}
			case "error":
				if event.Error != nil {
					fail(event.Error)
				} else {
					fail(fmt.Errorf("stream error"))
				}
				return
			case "message_stop":
				return
			}
		}
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
}

func buildRequest(log *slog.Logger, conv []model.Message, opts model.GenerateOptions, stream bool) *messageRequest {
	system, rest := model.SplitSystem(conv)

	req := &messageRequest{
		Model:     opts.Model,
		System:    system,
		Stream:    stream,
		MaxTokens: defaultMaxTokens,
		Messages:  make([]message, 0, len(rest)),
	}
	if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		// The Messages API accepts 0..1.
		t := min(max(*opts.Temperature, 0), 1)
		if t != *opts.Temperature {
			log.Debug("Temperature clamped", "model", opts.Model, "requested", *opts.Temperature, "sent", t)
		}
		req.Temperature = &t
	}
	for _, m := range rest {
		req.Messages = append(req.Messages, message{Role: string(m.Role), Content: m.Content})
	}
	return req
}

var _ model.Capability = (*Client)(nil)
