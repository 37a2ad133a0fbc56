package schema

import (
	"fmt"
	"sync"
)

// Factory lazily produces an entity definition. Factories let two entities
// reference each other without requiring either to exist first: the factory is
// only invoked when the referencing relation boots.
type Factory func() *Entity

// Registry holds entity factories by name and memoizes their resolution.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	resolved  map[string]*Entity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		resolved:  make(map[string]*Entity),
	}
}

// Register stores a factory under the given entity name. Registering the same
// name twice replaces the previous factory unless it has already been resolved.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("cannot register entity with empty name")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for entity %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.resolved[name]; done {
		return fmt.Errorf("entity %s is already resolved and cannot be re-registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Resolve invokes the factory for name (once) and returns the entity.
func (r *Registry) Resolve(name string) (*Entity, error) {
	r.mu.RLock()
	if e, ok := r.resolved[name]; ok {
		r.mu.RUnlock()
		return e, nil
	}
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("entity %s is not registered", name)
	}

	e := factory()
	if e == nil {
		return nil, fmt.Errorf("factory for entity %s returned nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.resolved[name]; ok {
		return prior, nil
	}
	r.resolved[name] = e
	return e, nil
}

// Lazy returns a Factory resolving name through the registry, panicking on
// resolution failure. Suitable for wiring relation definitions where a missing
// entity is a programming error.
func (r *Registry) Lazy(name string) Factory {
	return func() *Entity {
		e, err := r.Resolve(name)
		if err != nil {
			panic(err)
		}
		return e
	}
}
