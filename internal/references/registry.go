// Package references resolves the entity a revision targets from its
// (reference, reference_id) pair.
package references

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"treelof-api/internal/models"
)

var (
	// ErrEntityNotFound means the reference name is known but no entity has that id.
	ErrEntityNotFound = errors.New("referenced entity not found")
	// ErrUnknownReference means no resolver is registered for the reference name.
	ErrUnknownReference = errors.New("unknown reference")
)

// EntityResolver loads one kind of entity as a field -> value record.
type EntityResolver interface {
	Resolve(ctx context.Context, id string) (models.Record, error)
}

// ResolverFunc adapts a function to EntityResolver.
type ResolverFunc func(ctx context.Context, id string) (models.Record, error)

func (f ResolverFunc) Resolve(ctx context.Context, id string) (models.Record, error) {
	return f(ctx, id)
}

type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]EntityResolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: map[string]EntityResolver{}}
}

// Register binds name to r, replacing any previous resolver for name.
func (g *Registry) Register(name string, r EntityResolver) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolvers[name] = r
}

// Resolve dispatches to the resolver registered for reference.
func (g *Registry) Resolve(ctx context.Context, reference, id string) (models.Record, error) {
	g.mu.RLock()
	r, ok := g.resolvers[reference]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReference, reference)
	}
	return r.Resolve(ctx, id)
}

// Names lists the registered reference names, sorted.
func (g *Registry) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.resolvers))
	for name := range g.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
