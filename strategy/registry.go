package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a strategy instance for one run. The optimizer calls it
// once per parameter combination.
type Factory func(name string, params Params) Strategy

// Registry maps strategy names to factories. It replaces runtime module
// scanning: the host process registers every available strategy explicitly
// at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name. Re-registering a name
// overwrites the previous factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates the named strategy with the given parameters.
func (r *Registry) Create(name string, params Params) (Strategy, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	return factory(name, params), nil
}

// Names lists the registered strategy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
