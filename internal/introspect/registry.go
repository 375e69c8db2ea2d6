package introspect

import (
	"context"
	"fmt"
	"sync"
)

// Factory opens a connection and builds an Introspector for one dialect.
type Factory func(ctx context.Context, opts Options) (Introspector, error)

// registry is the global dialect registry instance.
var registry = &Registry{
	dialects: make(map[string]Factory),
}

// Registry manages introspector factories keyed by dialect name.
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]Factory
}

// Register adds a factory to the registry.
// Panics if the dialect is already registered.
func (r *Registry) Register(dialect string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dialects[dialect]; exists {
		panic(fmt.Sprintf("introspect: dialect %q already registered", dialect))
	}

	r.dialects[dialect] = factory
}

// New builds an Introspector for the specified dialect.
// Returns an error if the dialect is not registered.
func (r *Registry) New(ctx context.Context, dialect string, opts Options) (Introspector, error) {
	r.mu.RLock()
	factory, exists := r.dialects[dialect]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}

	return factory(ctx, opts)
}

// List returns all registered dialect names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.dialects))
	for dialect := range r.dialects {
		names = append(names, dialect)
	}

	return names
}

// IsRegistered reports whether a dialect is registered.
func (r *Registry) IsRegistered(dialect string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.dialects[dialect]
	return exists
}

// Register allows dialect packages to register themselves.
func Register(dialect string, factory Factory) {
	registry.Register(dialect, factory)
}

// New builds an Introspector for a dialect from the global registry.
func New(ctx context.Context, dialect string, opts Options) (Introspector, error) {
	return registry.New(ctx, dialect, opts)
}

// ListRegistered returns all registered dialect names.
func ListRegistered() []string {
	return registry.List()
}

// IsDialectSupported reports whether a dialect is supported.
func IsDialectSupported(dialect string) bool {
	return registry.IsRegistered(dialect)
}
