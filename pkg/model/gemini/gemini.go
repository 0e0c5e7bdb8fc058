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

// Package gemini provides a model.Capability for Google Gemini models using
// the official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/kadirpekel/debater/pkg/model"
)

const (
	vendorName   = "Gemini"
	modelsPrefix = "models/"
	listPageSize = 100
	generateVerb = "generateContent"
)

// Config contains configuration for the Gemini backend.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Timeout bounds a generation call (default: model.DefaultTimeout)
	Timeout time.Duration
}

// Client is a Gemini backend. The SDK client is created on first use so
// construction never fails.
type Client struct {
	cfg Config

	once    sync.Once
	client  *genai.Client
	initErr error
}

// New creates a Gemini backend.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Provider() model.Provider {
	return model.ProviderGemini
}

func (c *Client) Available(context.Context) bool {
	return c.cfg.APIKey != ""
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		cc := &genai.ClientConfig{
			APIKey:  c.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if c.cfg.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
		}
		c.client, c.initErr = genai.NewClient(ctx, cc)
		if c.initErr != nil {
			c.initErr = fmt.Errorf("failed to create Gemini client: %w", c.initErr)
		}
	})
	return c.client, c.initErr
}

// ListModels returns the models that support content generation. Without
// an API key the list is empty.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if !c.Available(ctx) {
		return []model.ModelInfo{}, nil
	}
	client, err := c.sdk(ctx)
	if err != nil {
		return nil, err
	}

	page, err := client.Models.List(ctx, &genai.ListModelsConfig{PageSize: listPageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to list Gemini models: %w", err)
	}

	models := make([]model.ModelInfo, 0, len(page.Items))
	for _, m := range page.Items {
		if !supports(m.SupportedActions, generateVerb) {
			continue
		}
		id := strings.TrimPrefix(m.Name, modelsPrefix)
		name := m.DisplayName
		if name == "" {
			name = id
		}
		models = append(models, model.ModelInfo{
			ID:          id,
			Name:        name,
			Provider:    model.ProviderGemini,
			Description: m.Description,
		})
	}
	return models, nil
}

// Generate streams or fetches a completion. Thought parts are skipped.
func (c *Client) Generate(ctx context.Context, conv []model.Message, opts model.GenerateOptions, stream bool) iter.Seq2[string, error] {
	if c.cfg.APIKey == "" {
		return model.Single(model.NotConfiguredText(vendorName))
	}

	return func(yield func(string, error) bool) {
		ctx, cancel := model.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		fail := func(err error) {
			yield("", model.NewGenerationError(model.ProviderGemini, opts.Model, err))
		}

		client, err := c.sdk(ctx)
		if err != nil {
			fail(err)
			return
		}

		contents, config := buildRequest(conv, opts)

		if !stream {
			resp, err := client.Models.GenerateContent(ctx, opts.Model, contents, config)
			if err != nil {
				fail(err)
				return
			}
			if text := responseText(resp); text != "" {
				yield(text, nil)
			}
			return
		}

		for resp, err := range client.Models.GenerateContentStream(ctx, opts.Model, contents, config) {
			if err != nil {
				fail(err)
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

func buildRequest(conv []model.Message, opts model.GenerateOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := model.SplitSystem(conv)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := genai.Role(genai.RoleUser)
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*opts.Temperature))
	}
	if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(*opts.MaxTokens)
	}
	return contents, config
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func supports(actions []string, verb string) bool {
	for _, a := range actions {
		if a == verb {
			return true
		}
	}
	return false
}

var _ model.Capability = (*Client)(nil)
