// Package layout owns the static side of an event seating: the published
// sections and seats, the ticket types bound to them and the seat-level
// price overrides written by repricing.
package layout

import (
    "context"
    "sync"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

// Catalog persists layouts, ticket types and price overrides.  It is
// implemented in memory here and on MySQL by repository.CatalogRepo.
type Catalog interface {
    Seating(ctx context.Context, id string) (*model.EventSeating, error)
    PutSeating(ctx context.Context, seating *model.EventSeating) error
    TicketTypes(ctx context.Context, seatingID string) ([]model.TicketType, error)
    PutTicketTypes(ctx context.Context, seatingID string, types []model.TicketType) error
    Overrides(ctx context.Context, seatingID string) (map[string]model.PriceOverride, error)
    SaveOverrides(ctx context.Context, seatingID string, overrides []model.PriceOverride) error
}

// MemoryCatalog keeps everything in maps.  Returned seatings are shared and
// must be treated as read-only.
type MemoryCatalog struct {
    mu        sync.RWMutex
    seatings  map[string]*model.EventSeating
    types     map[string][]model.TicketType
    overrides map[string]map[string]model.PriceOverride
}

// NewMemoryCatalog returns an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
    return &MemoryCatalog{
        seatings:  make(map[string]*model.EventSeating),
        types:     make(map[string][]model.TicketType),
        overrides: make(map[string]map[string]model.PriceOverride),
    }
}

func (c *MemoryCatalog) Seating(_ context.Context, id string) (*model.EventSeating, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    s, ok := c.seatings[id]
    if !ok {
        return nil, apperr.NotFound("event seating", id)
    }
    return s, nil
}

func (c *MemoryCatalog) PutSeating(_ context.Context, seating *model.EventSeating) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.seatings[seating.ID] = seating
    return nil
}

func (c *MemoryCatalog) TicketTypes(_ context.Context, seatingID string) ([]model.TicketType, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    if _, ok := c.seatings[seatingID]; !ok {
        return nil, apperr.NotFound("event seating", seatingID)
    }
    out := make([]model.TicketType, len(c.types[seatingID]))
    copy(out, c.types[seatingID])
    return out, nil
}

func (c *MemoryCatalog) PutTicketTypes(_ context.Context, seatingID string, types []model.TicketType) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    cp := make([]model.TicketType, len(types))
    copy(cp, types)
    c.types[seatingID] = cp
    return nil
}

func (c *MemoryCatalog) Overrides(_ context.Context, seatingID string) (map[string]model.PriceOverride, error) {
    c.mu.RLock()
    defer c.mu.RUnlock()
    out := make(map[string]model.PriceOverride, len(c.overrides[seatingID]))
    for k, v := range c.overrides[seatingID] {
        out[k] = v
    }
    return out, nil
}

func (c *MemoryCatalog) SaveOverrides(_ context.Context, seatingID string, overrides []model.PriceOverride) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    m, ok := c.overrides[seatingID]
    if !ok {
        m = make(map[string]model.PriceOverride, len(overrides))
        c.overrides[seatingID] = m
    }
    for _, o := range overrides {
        m[o.Key()] = o
    }
    return nil
}
