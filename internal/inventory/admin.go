package inventory

import (
    "context"
    "fmt"

    "github.com/iliyamo/seating-core/internal/model"
)

// Admin wraps a Store with the owner-facing operations: blocking seats from
// sale and toggling structural availability.  Blocking goes through the same
// compare-and-set as the booking flow, so a seat that is held or sold is
// simply skipped.
type Admin struct {
    store Store
}

// NewAdmin returns an Admin over store.
func NewAdmin(store Store) *Admin { return &Admin{store: store} }

// Block moves available seats to blocked and returns how many moved.
func (a *Admin) Block(ctx context.Context, seatingID string, seatUIDs []string) (int, error) {
    return a.apply(ctx, seatingID, seatUIDs, Transition{From: model.SeatAvailable, To: model.SeatBlocked})
}

// Unblock moves blocked seats back to available.
func (a *Admin) Unblock(ctx context.Context, seatingID string, seatUIDs []string) (int, error) {
    return a.apply(ctx, seatingID, seatUIDs, Transition{From: model.SeatBlocked, To: model.SeatAvailable})
}

// BlockByLocation blocks the seats of one row, or of the whole section when
// rowLabel is empty.  seatLabels narrows the row further when given.
func (a *Admin) BlockByLocation(ctx context.Context, seatingID, sectionID, rowLabel string, seatLabels []string) (int, error) {
    seats, err := a.store.List(ctx, seatingID)
    if err != nil {
        return 0, err
    }
    labels := make(map[string]bool, len(seatLabels))
    for _, l := range seatLabels {
        labels[l] = true
    }
    var uids []string
    for _, s := range seats {
        if s.SectionID != sectionID {
            continue
        }
        if rowLabel != "" && s.RowLabel != rowLabel {
            continue
        }
        if len(labels) > 0 && !labels[s.SeatLabel] {
            continue
        }
        uids = append(uids, s.SeatUID)
    }
    return a.Block(ctx, seatingID, uids)
}

// Blocked lists the blocked seats of a seating.
func (a *Admin) Blocked(ctx context.Context, seatingID string) ([]model.Seat, error) {
    seats, err := a.store.List(ctx, seatingID)
    if err != nil {
        return nil, err
    }
    var out []model.Seat
    for _, s := range seats {
        if s.Status == model.SeatBlocked {
            out = append(out, s)
        }
    }
    return out, nil
}

// Disable marks a seat structurally unavailable.
func (a *Admin) Disable(ctx context.Context, seatingID, seatUID string) error {
    return a.store.SetBaseStatus(ctx, seatingID, seatUID, model.BaseStatusUnavailable)
}

// Enable clears the structural override so the seat can be sold again.
func (a *Admin) Enable(ctx context.Context, seatingID, seatUID string) error {
    return a.store.SetBaseStatus(ctx, seatingID, seatUID, model.BaseStatusNone)
}

func (a *Admin) apply(ctx context.Context, seatingID string, seatUIDs []string, t Transition) (int, error) {
    n := 0
    for _, uid := range seatUIDs {
        ok, err := a.store.CompareAndSet(ctx, seatingID, uid, t)
        if err != nil {
            return n, fmt.Errorf("%s seat %s: %w", t.To, uid, err)
        }
        if ok {
            n++
        }
    }
    return n, nil
}
