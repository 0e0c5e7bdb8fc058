package config

import (
	"fmt"
	"time"
)

const (
	DefaultOllamaBaseURL     = "http://localhost:11434"
	DefaultGenerationTimeout = 180 * time.Second
)

// GenerationConfig bounds backend calls.
type GenerationConfig struct {
	// Timeout is the ceiling for one generation call (default: 180s).
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"type=string,default=180s"`

	// MaxRetries retries a vendor call that failed before streaming started.
	// Default 0: a failed turn ends the debate.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"minimum=0,default=0"`
}

func (c *GenerationConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultGenerationTimeout
	}
}

func (c *GenerationConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// ProviderConfig holds one backend's credentials and endpoint.
type ProviderConfig struct {
	// APIKey authenticates with the vendor. Missing keys make the provider
	// report itself unavailable rather than failing startup.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the vendor endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// ProvidersConfig configures every built-in backend.
//
// Example:
//
//	providers:
//	  openai:
//	    api_key: ${OPENAI_API_KEY}
//	  ollama:
//	    base_url: ${OLLAMA_BASE_URL:-http://localhost:11434}
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai,omitempty" json:"openai,omitempty"`
	Anthropic ProviderConfig `yaml:"anthropic,omitempty" json:"anthropic,omitempty"`
	Gemini    ProviderConfig `yaml:"gemini,omitempty" json:"gemini,omitempty"`
	Ollama    ProviderConfig `yaml:"ollama,omitempty" json:"ollama,omitempty"`
}

func (c *ProvidersConfig) SetDefaults() {
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = DefaultOllamaBaseURL
	}
}

func (c *ProvidersConfig) Validate() error {
	return nil
}
