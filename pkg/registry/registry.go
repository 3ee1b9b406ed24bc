// Package registry maps node-type names to their implementations.
// It is populated by the built-in node set and by whatever loader the
// embedding application uses; the engine only ever reads from it.
package registry

import (
	"sort"
	"sync"

	"github.com/latticelabs/lattice/pkg/node"
)

// Registry manages the available node types.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]node.Factory
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]node.Factory),
	}
}

// Register adds a node type to the registry.
// If the type is already registered, it is overwritten.
func (r *Registry) Register(nodeType string, f node.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[nodeType] = f
}

// Get returns the factory for a node type.
func (r *Registry) Get(nodeType string) (node.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[nodeType]
	return f, ok
}

// Types returns the registered node type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// All returns a copy of the full type-to-factory mapping.
func (r *Registry) All() map[string]node.Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]node.Factory, len(r.factories))
	for t, f := range r.factories {
		out[t] = f
	}
	return out
}

// Specs returns the spec of every registered node type, ordered by
// type name. Used by the API layer and the CLI to describe the
// palette of available nodes.
func (r *Registry) Specs() []node.Spec {
	types := r.Types()
	specs := make([]node.Spec, 0, len(types))
	for _, t := range types {
		f, _ := r.Get(t)
		specs = append(specs, f().Spec())
	}
	return specs
}
