package hold

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

// Store persists hold records.  Take is the arbitration point between
// confirm, release and the sweeper: whoever takes a hold owns its seats'
// final transition.
type Store interface {
    Save(ctx context.Context, h model.SeatHold) error
    Get(ctx context.Context, id string) (model.SeatHold, error)
    // FindByHolder returns the holder's hold for a seating, live or lapsed.
    FindByHolder(ctx context.Context, holderID, seatingID string) (model.SeatHold, error)
    // Touch moves the deadline of a hold that is still live at now.
    Touch(ctx context.Context, id string, now, expiresAt time.Time) (model.SeatHold, error)
    // Take atomically removes and returns a hold.
    Take(ctx context.Context, id string) (model.SeatHold, error)
    // TakeExpired removes and returns up to limit holds lapsed at now.
    TakeExpired(ctx context.Context, now time.Time, limit int) ([]model.SeatHold, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
    mu       sync.Mutex
    byID     map[string]model.SeatHold
    byHolder map[string]string // holder|seating -> hold id
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{byID: make(map[string]model.SeatHold), byHolder: make(map[string]string)}
}

func holderKey(holderID, seatingID string) string { return holderID + "|" + seatingID }

func (s *MemoryStore) Save(_ context.Context, h model.SeatHold) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    h.Seats = append([]model.HeldSeat(nil), h.Seats...)
    s.byID[h.ID] = h
    s.byHolder[holderKey(h.HolderID, h.EventSeatingID)] = h.ID
    return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.SeatHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.byID[id]
    if !ok {
        return model.SeatHold{}, apperr.NotFound("hold", id)
    }
    return h, nil
}

func (s *MemoryStore) FindByHolder(_ context.Context, holderID, seatingID string) (model.SeatHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    id, ok := s.byHolder[holderKey(holderID, seatingID)]
    if !ok {
        return model.SeatHold{}, apperr.NotFound("hold for holder", holderID)
    }
    return s.byID[id], nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, now, expiresAt time.Time) (model.SeatHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.byID[id]
    if !ok {
        return model.SeatHold{}, apperr.NotFound("hold", id)
    }
    if h.Expired(now) {
        return model.SeatHold{}, apperr.ErrHoldExpired
    }
    h.ExpiresAt = expiresAt
    s.byID[id] = h
    return h, nil
}

func (s *MemoryStore) Take(_ context.Context, id string) (model.SeatHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    h, ok := s.byID[id]
    if !ok {
        return model.SeatHold{}, apperr.NotFound("hold", id)
    }
    s.remove(h)
    return h, nil
}

func (s *MemoryStore) TakeExpired(_ context.Context, now time.Time, limit int) ([]model.SeatHold, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []model.SeatHold
    for _, h := range s.byID {
        if h.Expired(now) {
            out = append(out, h)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    for _, h := range out {
        s.remove(h)
    }
    return out, nil
}

// remove drops h; the holder index only points at h if no newer hold replaced it.
func (s *MemoryStore) remove(h model.SeatHold) {
    delete(s.byID, h.ID)
    key := holderKey(h.HolderID, h.EventSeatingID)
    if s.byHolder[key] == h.ID {
        delete(s.byHolder, key)
    }
}
