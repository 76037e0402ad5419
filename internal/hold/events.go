package hold

import (
    "context"
    "time"
)

// EventType names a hold lifecycle event.
type EventType string

const (
    EventSeatsSold    EventType = "seats.sold"
    EventHoldExpired  EventType = "hold.expired"
    EventHoldReleased EventType = "hold.released"
)

// Event is published after a hold leaves the store.
type Event struct {
    Type           EventType `json:"type"`
    HoldID         string    `json:"hold_id"`
    HolderID       string    `json:"holder_id"`
    EventSeatingID string    `json:"event_seating_id"`
    SeatUIDs       []string  `json:"seat_uids"`
    At             time.Time `json:"at"`
}

// Publisher delivers hold events to the outside world.  Failures are logged
// by the manager and never fail the operation that produced the event.
type Publisher interface {
    Publish(ctx context.Context, ev Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
