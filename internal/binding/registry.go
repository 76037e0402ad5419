package binding

import (
    "context"
    "fmt"
    "sync"

    "github.com/iliyamo/seating-core/internal/model"
)

// Source loads the ticket types of a seating.
type Source interface {
    TicketTypes(ctx context.Context, seatingID string) ([]model.TicketType, error)
}

// Registry holds one Resolver per seating.  Resolvers are replaced wholesale
// on Rebuild, so readers never observe a half-updated index.
type Registry struct {
    src Source

    mu        sync.RWMutex
    resolvers map[string]*Resolver
}

// NewRegistry returns a registry backed by src.
func NewRegistry(src Source) *Registry {
    return &Registry{src: src, resolvers: make(map[string]*Resolver)}
}

// Get returns the resolver of a seating, building it on first use.
func (r *Registry) Get(ctx context.Context, seatingID string) (*Resolver, error) {
    r.mu.RLock()
    res, ok := r.resolvers[seatingID]
    r.mu.RUnlock()
    if ok {
        return res, nil
    }
    return r.Rebuild(ctx, seatingID)
}

// Rebuild reloads the ticket types of a seating and swaps in a new resolver.
func (r *Registry) Rebuild(ctx context.Context, seatingID string) (*Resolver, error) {
    types, err := r.src.TicketTypes(ctx, seatingID)
    if err != nil {
        return nil, fmt.Errorf("load ticket types for %s: %w", seatingID, err)
    }
    res, err := New(types)
    if err != nil {
        return nil, err
    }
    r.mu.Lock()
    r.resolvers[seatingID] = res
    r.mu.Unlock()
    return res, nil
}

// Forget drops the cached resolver of a seating.
func (r *Registry) Forget(seatingID string) {
    r.mu.Lock()
    delete(r.resolvers, seatingID)
    r.mu.Unlock()
}
