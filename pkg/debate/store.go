package debate

import (
	"fmt"

	"github.com/kadirpekel/debater/pkg/registry"
)

// Store keeps the debates of one process, keyed by id. Completed debates
// stay until removed.
type Store struct {
	debates   *registry.Store[*Orchestrator]
	providers Resolver
	opts      []Option
}

// NewStore returns a Store whose debates resolve capabilities through
// providers and share opts.
func NewStore(providers Resolver, opts ...Option) *Store {
	return &Store{
		debates:   registry.NewStore[*Orchestrator](),
		providers: providers,
		opts:      opts,
	}
}

// Create builds and registers a new debate.
func (s *Store) Create(cfg Config) (*Orchestrator, error) {
	o, err := New(cfg, s.providers, s.opts...)
	if err != nil {
		return nil, err
	}
	return o, s.add(o)
}

// Import rebuilds a debate from an export and registers it.
func (s *Store) Import(exp Export) (*Orchestrator, error) {
	o, err := Import(exp, s.providers, s.opts...)
	if err != nil {
		return nil, err
	}
	return o, s.add(o)
}

func (s *Store) add(o *Orchestrator) error {
	if err := s.debates.Register(o.ID(), o); err != nil {
		return fmt.Errorf("register debate: %w", err)
	}
	return nil
}

// Get returns the debate with id.
func (s *Store) Get(id string) (*Orchestrator, bool) {
	return s.debates.Get(id)
}

// List returns every debate ordered by id.
func (s *Store) List() []*Orchestrator {
	return s.debates.List()
}

// Remove stops and forgets the debate with id.
func (s *Store) Remove(id string) error {
	o, ok := s.debates.Get(id)
	if !ok {
		return fmt.Errorf("debate %q: %w", id, registry.ErrNotFound)
	}
	o.Stop()
	return s.debates.Remove(id)
}

// StopAll stops every debate. Used on shutdown.
func (s *Store) StopAll() {
	for _, o := range s.debates.List() {
		o.Stop()
	}
}

func (s *Store) Count() int {
	return s.debates.Count()
}
