package parser

import (
	"context"
	"fmt"
	"sort"
)

// Adapter defines the interface each parse tree backend must implement.
type Adapter interface {
	// Name returns the backend name (e.g., "clang", "treesitter")
	Name() string

	// Parse builds the parse tree of a C file. Extra flags are passed to
	// the backend unchanged.
	Parse(ctx context.Context, file string, flags []string) (*Node, error)
}

// Registry holds all registered adapters
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter to the registry
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown parser backend %q (supported: %v)", name, r.Names())
	}
	return a, nil
}

// Names returns the sorted names of registered adapters
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
