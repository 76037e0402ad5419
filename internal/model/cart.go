package model

import "time"

// CartLineItem is the buyer-visible cart entry for one ticket type of one
// event seating.  There is at most one line item per (seating, ticket type);
// a new selection replaces the whole set for the seating.
type CartLineItem struct {
    EventSeatingID      string      `json:"event_seating_id"`
    TicketTypeID        string      `json:"ticket_type_id"`
    TicketTypeName      string      `json:"ticket_type_name"`
    Seats               []string    `json:"seats,omitempty"`
    Quantity            int         `json:"quantity"`
    HoldID              string      `json:"hold_id,omitempty"`
    HoldExpiresAt       *time.Time  `json:"hold_expires_at,omitempty"`
    Prices              []SeatPrice `json:"prices,omitempty"`
    UnitDisplayCents    int64       `json:"unit_display_cents"`
    TotalDisplayCents   int64       `json:"total_display_cents"`
    TotalFeeCents       int64       `json:"total_fee_cents"`
    TotalEffectiveCents int64       `json:"total_effective_cents"`
}

// SeatPrice is the per-seat price snapshot stored on a line item.
type SeatPrice struct {
    SeatUID        string `json:"seat_uid"`
    DisplayCents   int64  `json:"display_cents"`
    FeeCents       int64  `json:"fee_cents"`
    EffectiveCents int64  `json:"effective_cents"`
}
