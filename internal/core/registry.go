package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler executes one operation over fully resolved arguments.
type Handler func(ctx context.Context, call *Call) (Value, error)

// Operation couples a registered name with its behavior and the metadata
// the help surfaces render.
type Operation struct {
	Name        string
	Description string
	Category    string
	Usage       string
	Handler     Handler
}

// Registry maps operation names to behaviors. Registration order is
// preserved for listings; registering a name again replaces the behavior
// in place, keeping the original slot. All methods are safe for
// concurrent use, including mutation while a resolution is in flight:
// each dispatch observes the registry as of its lookup.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]*Operation
	order []string
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds or replaces an operation. The last registration for a
// name wins.
func (r *Registry) Register(op *Operation) error {
	if op == nil || op.Name == "" {
		return fmt.Errorf("register: operation name is required")
	}
	if op.Handler == nil {
		return fmt.Errorf("register %s: handler is required", op.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[op.Name]; !exists {
		r.order = append(r.order, op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

// MustRegister panics on an invalid operation. Intended for static
// registration blocks, where a bad entry is a programming error.
func (r *Registry) MustRegister(op *Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Lookup finds an operation by name.
func (r *Registry) Lookup(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// List returns all operations in registration order.
func (r *Registry) List() []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}

// ListByCategory returns one category's operations in registration
// order.
func (r *Registry) ListByCategory(category string) []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Operation
	for _, name := range r.order {
		if op := r.ops[name]; op.Category == category {
			out = append(out, op)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, name := range r.order {
		cat := r.ops[name].Category
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
