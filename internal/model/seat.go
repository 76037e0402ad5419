package model

// SeatStatus is the booking state of a single seat within an event seating.
//
// The booking flow moves seats between available, held and sold.  blocked is
// an administrative "not for sale right now" state that only owners toggle,
// and disabled mirrors a structural base_status: it is absorbing and rejects
// every compare-and-set.
type SeatStatus string

const (
    SeatAvailable SeatStatus = "available"
    SeatHeld      SeatStatus = "held"
    SeatSold      SeatStatus = "sold"
    SeatBlocked   SeatStatus = "blocked"
    SeatDisabled  SeatStatus = "disabled"
)

// Valid reports whether s is one of the known statuses.
func (s SeatStatus) Valid() bool {
    switch s {
    case SeatAvailable, SeatHeld, SeatSold, SeatBlocked, SeatDisabled:
        return true
    }
    return false
}

// BaseStatus is a permanent override set on the layout, independent of the
// booking flow.  The empty value means "no override".
type BaseStatus string

const (
    BaseStatusNone        BaseStatus = ""
    BaseStatusUnavailable BaseStatus = "unavailable" // structurally unavailable seat
)

// Seat is the inventory record of one seat for one event seating.
//
// Fields:
//  EventSeatingID – seating the seat belongs to.
//  SeatUID        – immutable identifier, unique within the seating.
//  SectionID      – section the seat sits in (unit of ticket type eligibility).
//  RowLabel       – row label inside the section.
//  SeatLabel      – label printed on the seat.
//  Status         – current booking status.
//  BaseStatus     – optional permanent override.
//  HoldID         – hold owning the seat while Status is held.
//  Version        – incremented on every successful transition.
type Seat struct {
    EventSeatingID string     `json:"event_seating_id"`
    SeatUID        string     `json:"seat_uid"`
    SectionID      string     `json:"section_id"`
    RowLabel       string     `json:"row_label"`
    SeatLabel      string     `json:"seat_label"`
    Status         SeatStatus `json:"status"`
    BaseStatus     BaseStatus `json:"base_status,omitempty"`
    HoldID         string     `json:"hold_id,omitempty"`
    Version        uint64     `json:"version"`
}
