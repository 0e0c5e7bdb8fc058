// Package provider resolves provider ids to shared model.Capability
// instances.
//
// The id to constructor table is fixed when the Registry is built. Each
// capability is constructed on first use and then shared by every debate
// for the life of the process.
package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/debater/pkg/config"
	"github.com/kadirpekel/debater/pkg/model"
	"github.com/kadirpekel/debater/pkg/model/anthropic"
	"github.com/kadirpekel/debater/pkg/model/gemini"
	"github.com/kadirpekel/debater/pkg/model/ollama"
	"github.com/kadirpekel/debater/pkg/model/openai"
	"github.com/kadirpekel/debater/pkg/registry"
)

// Factory constructs a capability. Factories must not fail because of
// missing credentials; such capabilities report Available()==false.
type Factory = registry.Factory[model.Capability]

// ConfigurationError is returned for an id with no registered factory.
type ConfigurationError struct {
	ProviderID string
	Known      []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown provider %q (known: %s)", e.ProviderID, strings.Join(e.Known, ", "))
}

// Registry maps provider ids to lazily built singletons.
type Registry struct {
	lazy *registry.Lazy[model.Capability]
}

// New freezes factories into a Registry.
func New(factories map[string]Factory) *Registry {
	return &Registry{lazy: registry.NewLazy(factories)}
}

// NewFromConfig builds a Registry with the built-in backends.
func NewFromConfig(cfg *config.Config) *Registry {
	return New(DefaultFactories(cfg))
}

// DefaultFactories returns constructors for every built-in backend.
func DefaultFactories(cfg *config.Config) map[string]Factory {
	p := cfg.Providers
	g := cfg.Generation

	return map[string]Factory{
		string(model.ProviderOpenAI): func() (model.Capability, error) {
			return openai.New(openai.Config{
				APIKey:     p.OpenAI.APIKey,
				BaseURL:    p.OpenAI.BaseURL,
				Timeout:    g.Timeout,
				MaxRetries: g.MaxRetries,
			}), nil
		},
		string(model.ProviderAnthropic): func() (model.Capability, error) {
			return anthropic.New(anthropic.Config{
				APIKey:     p.Anthropic.APIKey,
				BaseURL:    p.Anthropic.BaseURL,
				Timeout:    g.Timeout,
				MaxRetries: g.MaxRetries,
			}), nil
		},
		string(model.ProviderOllama): func() (model.Capability, error) {
			return ollama.New(ollama.Config{
				BaseURL:    p.Ollama.BaseURL,
				Timeout:    g.Timeout,
				MaxRetries: g.MaxRetries,
			}), nil
		},
		string(model.ProviderGemini): func() (model.Capability, error) {
			return gemini.New(gemini.Config{
				APIKey:  p.Gemini.APIKey,
				BaseURL: p.Gemini.BaseURL,
				Timeout: g.Timeout,
			}), nil
		},
	}
}

// Get returns the shared capability for id.
func (r *Registry) Get(id string) (model.Capability, error) {
	if !r.lazy.Has(id) {
		return nil, &ConfigurationError{ProviderID: id, Known: r.lazy.Names()}
	}
	c, err := r.lazy.Get(id)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", id, err)
	}
	return c, nil
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	return r.lazy.Names()
}

// Models lists the models of one provider.
func (r *Registry) Models(ctx context.Context, id string) ([]model.ModelInfo, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return c.ListModels(ctx)
}

// Status is one provider's availability report.
type Status struct {
	Available bool              `json:"available"`
	Models    []model.ModelInfo `json:"models"`
}

// Availability checks every provider concurrently. A provider whose check
// fails is reported unavailable with no models.
func (r *Registry) Availability(ctx context.Context) map[string]Status {
	ids := r.IDs()
	out := make(map[string]Status, len(ids))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			st := Status{Models: []model.ModelInfo{}}
			if c, err := r.Get(id); err == nil && c.Available(ctx) {
				st.Available = true
				if models, err := c.ListModels(ctx); err == nil && models != nil {
					st.Models = models
				}
			}
			mu.Lock()
			out[id] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
