package trader

import (
	"fmt"
	"sort"
	"sync"
)

// Registry tracks running traders by ID so the process can stop, pause and
// inspect them as a group.
type Registry struct {
	mu      sync.RWMutex
	traders map[string]*Trader
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{traders: make(map[string]*Trader)}
}

// Add registers a trader. IDs must be unique.
func (r *Registry) Add(t *Trader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.traders[t.ID()]; exists {
		return fmt.Errorf("trader %s already registered", t.ID())
	}
	r.traders[t.ID()] = t
	return nil
}

// Remove unregisters a trader by ID. The trader is not stopped.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.traders, id)
}

// Get returns the trader with the given ID.
func (r *Registry) Get(id string) (*Trader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.traders[id]
	return t, ok
}

// List returns all registered traders sorted by ID.
func (r *Registry) List() []*Trader {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Trader, 0, len(r.traders))
	for _, t := range r.traders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Statuses returns a snapshot of every registered trader.
func (r *Registry) Statuses() []Status {
	traders := r.List()
	out := make([]Status, 0, len(traders))
	for _, t := range traders {
		out = append(out, t.Status())
	}
	return out
}

// StopAll stops every registered trader, collecting the first error.
func (r *Registry) StopAll() error {
	var first error
	for _, t := range r.List() {
		if err := t.Stop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Subscribe attaches the observer to every currently registered trader.
func (r *Registry) Subscribe(obs Observer) {
	for _, t := range r.List() {
		t.Subscribe(obs)
	}
}
