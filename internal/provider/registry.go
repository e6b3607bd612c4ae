// Package provider holds the pluggable-capability machinery shared by the
// translation and analysis stages: a generic identifier-to-factory registry
// and the error sentinels the pipeline keys its retry policy on.
//
// Registries are plain values constructed at process startup (see the builtin
// subpackage); nothing self-registers at import time, so tests can build an
// isolated registry per case.
package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider instance. Factories close over whatever
// configuration and clients the provider needs.
type Factory[T any] func() (T, error)

// Registry maps string identifiers to provider factories. Registration is
// idempotent and last write wins; resolving an unknown identifier returns
// ErrNotRegistered rather than panicking.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]Factory[T]),
	}
}

// Register records a factory under the given identifier
func (r *Registry[T]) Register(id string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// Resolve builds the provider registered under the given identifier
func (r *Registry[T]) Resolve(id string) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()

	var zero T
	if !ok {
		return zero, fmt.Errorf("provider %q: %w", id, ErrNotRegistered)
	}
	return factory()
}

// IDs returns the registered identifiers in sorted order
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
