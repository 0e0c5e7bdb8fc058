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

// Package model defines the text generation capability shared by every
// backend.
//
// A backend turns a role-tagged conversation into a lazy sequence of text
// fragments:
//   - Generate returns iter.Seq2[string, error] for both streaming and
//     non-streaming calls
//   - Streaming yields fragments as they arrive; non-streaming yields at
//     most one fragment
//   - Breaking out of the range loop cancels the underlying request
//   - A failure is yielded as a non-nil error wrapping ErrGeneration
package model

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

// DefaultTimeout bounds a single Generate call.
const DefaultTimeout = 180 * time.Second

// Capability is the interface every text generation backend implements.
type Capability interface {
	// Provider returns the backend identifier (e.g., "openai", "ollama").
	Provider() Provider

	// Generate produces text for conv using the model named in opts.
	//
	// When stream=false the sequence yields exactly one fragment, or none.
	// When stream=true fragments are yielded in arrival order.
	// Errors are yielded as ("", err) and end the sequence.
	Generate(ctx context.Context, conv []Message, opts GenerateOptions, stream bool) iter.Seq2[string, error]

	// Available reports whether the backend is configured and reachable.
	// Implementations may cache the answer.
	Available(ctx context.Context) bool

	// ListModels returns selectable models. An empty list is valid and
	// means callers should accept a free-text model id.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Provider identifies a backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOllama    Provider = "ollama"
)

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation sent to a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SplitSystem separates system messages from the rest. Multiple system
// messages are joined with a blank line. Used by backends that take the
// system prompt as a separate field.
func SplitSystem(conv []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(conv))
	for _, m := range conv {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// GenerateOptions carries per-call generation parameters. Nil pointers mean
// "use the backend default".
type GenerateOptions struct {
	// Model is the backend-specific model id.
	Model string

	// Temperature controls randomness (0-2).
	Temperature *float64

	// MaxTokens limits the response length.
	MaxTokens *int
}

// Clone returns a deep copy of the options.
func (o GenerateOptions) Clone() GenerateOptions {
	clone := o
	if o.Temperature != nil {
		t := *o.Temperature
		clone.Temperature = &t
	}
	if o.MaxTokens != nil {
		n := *o.MaxTokens
		clone.MaxTokens = &n
	}
	return clone
}

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    Provider `json:"provider"`
	Description string   `json:"description,omitempty"`
}

// ErrGeneration marks every failure yielded by Generate.
var ErrGeneration = errors.New("generation failed")

// GenerationError records which backend and model failed.
type GenerationError struct {
	Provider Provider
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// NewGenerationError wraps err as a GenerationError. Context deadline
// errors are kept in the chain so callers can tell a timeout apart.
func NewGenerationError(p Provider, model string, err error) error {
	if err == nil {
		return nil
	}
	return &GenerationError{Provider: p, Model: model, Err: err}
}

// NotConfiguredText is the in-band fragment a backend yields when it lacks
// credentials. The debate records it as the turn content.
func NotConfiguredText(vendor string) string {
	return fmt.Sprintf("Error: %s API key not configured", vendor)
}

// Single yields text once, or nothing when text is empty.
func Single(text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if text != "" {
			yield(text, nil)
		}
	}
}

// Fail yields err once.
func Fail(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}

// Collect drains seq and returns the concatenated text. It stops at the
// first error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(fragment)
	}
	return b.String(), nil
}

// WithTimeout applies the generation ceiling to ctx. A non-positive d
// selects DefaultTimeout.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
