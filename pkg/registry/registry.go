// Package registry provides small thread-safe keyed containers.
//
// Store holds values registered explicitly by name. Lazy builds each value on
// first use from a fixed factory table and caches it for its own lifetime.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrEmptyName = errors.New("name cannot be empty")
	ErrExists    = errors.New("already registered")
	ErrNotFound  = errors.New("not found")
)

// Registry is the read/write surface shared by keyed containers.
type Registry[T any] interface {
	Register(name string, item T) error
	Get(name string) (T, bool)
	Names() []string
	Remove(name string) error
	Count() int
}

// Store is a mutex-guarded map of named items.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

func (r *Store[T]) Register(name string, item T) error {
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return fmt.Errorf("%q: %w", name, ErrExists)
	}
	r.items[name] = item
	return nil
}

func (r *Store[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[name]
	return item, ok
}

// List returns all items ordered by name.
func (r *Store[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.sortedNamesLocked()
	items := make([]T, 0, len(names))
	for _, n := range names {
		items = append(items, r.items[n])
	}
	return items
}

func (r *Store[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNamesLocked()
}

func (r *Store[T]) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.items))
	for n := range r.items {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Store[T]) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	delete(r.items, name)
	return nil
}

func (r *Store[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Factory builds the value for a Lazy entry.
type Factory[T any] func() (T, error)

// Lazy maps names to factories and memoizes each factory's first result.
// Concurrent first calls for the same name run the factory once.
type Lazy[T any] struct {
	factories map[string]Factory[T]
	order     []string

	mu    sync.Mutex
	slots map[string]*lazySlot[T]
}

type lazySlot[T any] struct {
	once sync.Once
	val  T
	err  error
}

// NewLazy freezes the factory table. Later changes to factories are not seen.
func NewLazy[T any](factories map[string]Factory[T]) *Lazy[T] {
	l := &Lazy[T]{
		factories: make(map[string]Factory[T], len(factories)),
		slots:     make(map[string]*lazySlot[T], len(factories)),
	}
	for name, f := range factories {
		l.factories[name] = f
		l.order = append(l.order, name)
	}
	sort.Strings(l.order)
	return l
}

// Get returns the cached value for name, building it on first use.
// A factory error is cached too; the name stays broken for the Lazy's lifetime.
func (l *Lazy[T]) Get(name string) (T, error) {
	f, ok := l.factories[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%q: %w", name, ErrNotFound)
	}

	l.mu.Lock()
	slot, ok := l.slots[name]
	if !ok {
		slot = &lazySlot[T]{}
		l.slots[name] = slot
	}
	l.mu.Unlock()

	slot.once.Do(func() {
		slot.val, slot.err = f()
	})
	return slot.val, slot.err
}

// Has reports whether a factory exists for name.
func (l *Lazy[T]) Has(name string) bool {
	_, ok := l.factories[name]
	return ok
}

// Names returns the known names in sorted order.
func (l *Lazy[T]) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Built returns how many entries have been constructed so far.
func (l *Lazy[T]) Built() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ Registry[int] = (*Store[int])(nil)
