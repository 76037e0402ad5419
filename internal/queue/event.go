// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/seating-core/internal/hold"

// SeatingEvent is published for every hold that leaves the store: sold,
// expired or released.  It carries enough for downstream consumers to
// log, notify or update analytics without querying the inventory.
type SeatingEvent struct {
    Type           string   `json:"type"`
    HoldID         string   `json:"hold_id"`
    HolderID       string   `json:"holder_id"`
    EventSeatingID string   `json:"event_seating_id"`
    Seats          []string `json:"seats"`
    OccurredAt     string   `json:"occurred_at"`
}

// RoutingKey is the topic routing key, e.g. "seating.hold.expired".
func (e SeatingEvent) RoutingKey() string { return "seating." + e.Type }

func fromHold(ev hold.Event) SeatingEvent {
    return SeatingEvent{
        Type:           string(ev.Type),
        HoldID:         ev.HoldID,
        HolderID:       ev.HolderID,
        EventSeatingID: ev.EventSeatingID,
        Seats:          ev.SeatUIDs,
        OccurredAt:     ev.At.UTC().Format("2006-01-02T15:04:05Z"),
    }
}
