// Package registry provides a generic, thread-safe registry for factories
// keyed by a type identifier.
//
// Example usage:
//
//	reg := registry.New[driver.Driver]()
//	reg.Register(mongoDriver)
//	d, err := reg.Get("mongo")
//	conn, err := d.Connect(ctx, opts)
package registry

import (
	"fmt"
	"sort"
	"sync"

	"docstore-handles/internal/common/errors"
)

// Factory defines the interface that all factory types must implement
// to be used with the generic registry.
type Factory interface {
	// GetType returns the type identifier for this factory
	GetType() string
}

// Registry provides a generic, thread-safe registry for factory instances.
type Registry[T Factory] struct {
	factories map[string]T
	mu        sync.RWMutex
}

// New creates a new empty registry for factories of type T.
func New[T Factory]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]T),
	}
}

// Register adds a factory under its own GetType() identifier.
// A factory already registered under the same identifier is replaced.
func (r *Registry[T]) Register(factory T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.GetType()] = factory
}

// Get retrieves a factory by its type identifier.
// Returns a not_found error if the factory type is not registered.
func (r *Registry[T]) Get(factoryType string) (T, error) {
	r.mu.RLock()
	factory, exists := r.factories[factoryType]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("factory type %s", factoryType))
	}

	return factory, nil
}

// GetAvailableTypes returns the registered type identifiers in sorted order.
func (r *Registry[T]) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for factoryType := range r.factories {
		types = append(types, factoryType)
	}
	sort.Strings(types)
	return types
}
