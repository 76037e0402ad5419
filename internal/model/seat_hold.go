package model

import "time"

// SeatHold is a time-boxed exclusive claim on a set of seats.  It is created
// only by a successful hold batch and destroyed on expiry, on explicit
// release or when it is converted into a sale.
//
// Fields:
//  ID             – hold id returned to the client (hold_token in storage).
//  EventSeatingID – seating the seats belong to.
//  HolderID       – buyer session or customer owning the hold.
//  Seats          – held seats with the ticket type each is sold as.
//  HeldAt         – when the hold was first created.
//  ExpiresAt      – lease deadline.
type SeatHold struct {
    ID             string     `json:"hold_id"`
    EventSeatingID string     `json:"event_seating_id"`
    HolderID       string     `json:"holder_id"`
    Seats          []HeldSeat `json:"seats"`
    HeldAt         time.Time  `json:"held_at"`
    ExpiresAt      time.Time  `json:"expires_at"`
}

// HeldSeat pairs a seat with the ticket type it is held as.
type HeldSeat struct {
    SeatUID      string `json:"seat_uid"`
    TicketTypeID string `json:"ticket_type_id"`
}

// Expired reports whether the lease has lapsed at now.
func (h SeatHold) Expired(now time.Time) bool { return !now.Before(h.ExpiresAt) }

// SeatUIDs lists the held seat ids in hold order.
func (h SeatHold) SeatUIDs() []string {
    out := make([]string, len(h.Seats))
    for i, s := range h.Seats {
        out[i] = s.SeatUID
    }
    return out
}

// Owns reports whether the hold contains the seat.
func (h SeatHold) Owns(seatUID string) bool {
    for _, s := range h.Seats {
        if s.SeatUID == seatUID {
            return true
        }
    }
    return false
}
