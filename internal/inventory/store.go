// Package inventory is the source of truth for per-seat booking status.
// Every status change goes through a compare-and-set so that two concurrent
// hold batches can never both win the same seat.
package inventory

import (
    "context"

    "github.com/iliyamo/seating-core/internal/model"
)

// Transition describes one compare-and-set on a seat.
//
// The CAS succeeds only when the seat is currently in From and, if From is
// held, is owned by Owner.  When To is held the seat becomes owned by
// NewOwner; any other target clears the owner.
type Transition struct {
    From     model.SeatStatus
    To       model.SeatStatus
    Owner    string
    NewOwner string
}

// Store is implemented by the in-memory store and by the MySQL repository.
type Store interface {
    // Get returns one seat or apperr.ErrNotFound.
    Get(ctx context.Context, seatingID, seatUID string) (model.Seat, error)
    // List returns every seat of a seating in layout order.
    List(ctx context.Context, seatingID string) ([]model.Seat, error)
    // CompareAndSet applies t atomically and reports whether it won.
    // Disabled seats reject every transition.
    CompareAndSet(ctx context.Context, seatingID, seatUID string, t Transition) (bool, error)
    // Seed installs the seats of a published layout.  Seats that already
    // exist keep their current status.
    Seed(ctx context.Context, seatingID string, seats []model.Seat) error
    // SetBaseStatus is the administrative switch for structural
    // availability.  It is the only way in or out of disabled.
    SetBaseStatus(ctx context.Context, seatingID, seatUID string, base model.BaseStatus) error
}

// Allowed reports whether a seat currently in cur (owned by owner) may take
// transition t.  Every Store implementation applies the same rule.
func Allowed(cur model.SeatStatus, owner string, t Transition) bool {
    if cur == model.SeatDisabled || t.To == model.SeatDisabled || t.From == model.SeatDisabled {
        return false
    }
    if cur != t.From {
        return false
    }
    if cur == model.SeatHeld && owner != t.Owner {
        return false
    }
    if t.To == model.SeatHeld && t.NewOwner == "" {
        return false
    }
    return true
}

// OwnerAfter returns the hold id a seat carries after t succeeds.
func OwnerAfter(t Transition) string {
    if t.To == model.SeatHeld {
        return t.NewOwner
    }
    return ""
}
