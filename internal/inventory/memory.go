package inventory

import (
    "context"
    "sync"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

// cell guards a single seat.  The CAS path only ever locks one cell, so
// batches on unrelated seats never wait on each other.
type cell struct {
    mu   sync.Mutex
    seat model.Seat
}

type seatingCells struct {
    order []string
    cells map[string]*cell
}

// MemoryStore is an in-process Store.  The outer lock only protects the
// seating/cell maps; it is held for lookups, never across a seat update.
type MemoryStore struct {
    mu       sync.RWMutex
    seatings map[string]*seatingCells
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{seatings: make(map[string]*seatingCells)}
}

func (s *MemoryStore) cell(seatingID, seatUID string) (*cell, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    sc, ok := s.seatings[seatingID]
    if !ok {
        return nil, apperr.NotFound("event seating", seatingID)
    }
    c, ok := sc.cells[seatUID]
    if !ok {
        return nil, apperr.NotFound("seat", seatUID)
    }
    return c, nil
}

func (s *MemoryStore) Get(_ context.Context, seatingID, seatUID string) (model.Seat, error) {
    c, err := s.cell(seatingID, seatUID)
    if err != nil {
        return model.Seat{}, err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.seat, nil
}

func (s *MemoryStore) List(_ context.Context, seatingID string) ([]model.Seat, error) {
    s.mu.RLock()
    sc, ok := s.seatings[seatingID]
    if !ok {
        s.mu.RUnlock()
        return nil, apperr.NotFound("event seating", seatingID)
    }
    cells := make([]*cell, 0, len(sc.order))
    for _, uid := range sc.order {
        cells = append(cells, sc.cells[uid])
    }
    s.mu.RUnlock()

    out := make([]model.Seat, 0, len(cells))
    for _, c := range cells {
        c.mu.Lock()
        out = append(out, c.seat)
        c.mu.Unlock()
    }
    return out, nil
}

func (s *MemoryStore) CompareAndSet(_ context.Context, seatingID, seatUID string, t Transition) (bool, error) {
    c, err := s.cell(seatingID, seatUID)
    if err != nil {
        return false, err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    if !Allowed(c.seat.Status, c.seat.HoldID, t) {
        return false, nil
    }
    c.seat.Status = t.To
    c.seat.HoldID = OwnerAfter(t)
    c.seat.Version++
    return true, nil
}

func (s *MemoryStore) Seed(_ context.Context, seatingID string, seats []model.Seat) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    sc, ok := s.seatings[seatingID]
    if !ok {
        sc = &seatingCells{cells: make(map[string]*cell, len(seats))}
        s.seatings[seatingID] = sc
    }
    for _, seat := range seats {
        if _, exists := sc.cells[seat.SeatUID]; exists {
            continue
        }
        seat.EventSeatingID = seatingID
        if seat.Status == "" {
            seat.Status = model.SeatAvailable
        }
        if seat.BaseStatus == model.BaseStatusUnavailable {
            seat.Status = model.SeatDisabled
        }
        sc.cells[seat.SeatUID] = &cell{seat: seat}
        sc.order = append(sc.order, seat.SeatUID)
    }
    return nil
}

func (s *MemoryStore) SetBaseStatus(_ context.Context, seatingID, seatUID string, base model.BaseStatus) error {
    c, err := s.cell(seatingID, seatUID)
    if err != nil {
        return err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    next, err := BaseTransition(c.seat, base)
    if err != nil {
        return err
    }
    c.seat.BaseStatus = base
    if next != c.seat.Status {
        c.seat.Status = next
        c.seat.HoldID = ""
        c.seat.Version++
    }
    return nil
}

// BaseTransition computes the status a seat takes when its base status
// changes.  Seats in a live booking (held or sold) cannot be disabled.
func BaseTransition(seat model.Seat, base model.BaseStatus) (model.SeatStatus, error) {
    switch base {
    case model.BaseStatusUnavailable:
        switch seat.Status {
        case model.SeatHeld, model.SeatSold:
            return "", apperr.Conflict(seat.SeatUID, string(seat.Status))
        }
        return model.SeatDisabled, nil
    case model.BaseStatusNone:
        if seat.Status == model.SeatDisabled {
            return model.SeatAvailable, nil
        }
        return seat.Status, nil
    }
    return "", apperr.Invalid("base_status", "unknown base status %q", base)
}
