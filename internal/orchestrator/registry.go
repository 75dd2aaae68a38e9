// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"fmt"

	"github.com/pdiddy/cadfacts/internal/facts"
)

// RunFunc executes one extraction operation, staging its facts in b. The
// facts reach the store only if RunFunc returns nil.
type RunFunc func(ctx context.Context, b *facts.Batch) error

// Operation is a named extraction step.
type Operation struct {
	Name        string
	Description string
	Run         RunFunc
}

// Registry holds operations in registration order.
type Registry struct {
	ops   []Operation
	index map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register appends an operation. Names must be unique.
func (r *Registry) Register(name, description string, run RunFunc) error {
	if name == "" || run == nil {
		return fmt.Errorf("registering operation %q: name and run function are required", name)
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("registering operation %q: %w", name, ErrDuplicateOperation)
	}
	r.index[name] = len(r.ops)
	r.ops = append(r.ops, Operation{Name: name, Description: description, Run: run})
	return nil
}

// Get returns the named operation.
func (r *Registry) Get(name string) (Operation, bool) {
	i, ok := r.index[name]
	if !ok {
		return Operation{}, false
	}
	return r.ops[i], true
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Names returns operation names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ops))
	for i, op := range r.ops {
		names[i] = op.Name
	}
	return names
}

// Operations returns the registered operations in order.
func (r *Registry) Operations() []Operation {
	return append([]Operation(nil), r.ops...)
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.ops)
}
