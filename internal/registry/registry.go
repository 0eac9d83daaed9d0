// Package registry maps command kinds to factories that build them.
//
// Each engine instance owns its own Registry, so factories registered on
// one instance never leak into another. Factories are invoked with nil
// data for by-name execution and with a payload's data when rebuilding a
// command from serialized state.
package registry

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/dshills/rewind/internal/command"
)

// Factory produces a command. Data is nil for by-name execution and
// carries the serialized payload's data during deserialization.
type Factory func(data json.RawMessage) (command.Command, error)

// Registry stores command factories keyed by kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register stores factory under kind. A later registration for the same
// kind replaces the earlier one. Nil factories are ignored.
func (r *Registry) Register(kind string, factory Factory) {
	if factory == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Unregister removes the factory for kind, if any.
func (r *Registry) Unregister(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, kind)
}

// Get returns the factory for kind.
func (r *Registry) Get(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[kind]
	return f, ok
}

// Has reports whether kind has a registered factory.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// List returns all registered kinds, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Count returns the number of registered kinds.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Clear removes all registered factories.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories = make(map[string]Factory)
}
