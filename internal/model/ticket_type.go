package model

// TicketType is a sellable kind of ticket for an event seating.  Seated types
// are bound to one or more sections through SeatingSections; non-seated
// types are sold by quantity against AvailableQuantity.
type TicketType struct {
    ID                 string       `json:"id"`
    EventSeatingID     string       `json:"event_seating_id"`
    Name               string       `json:"name"`
    BasePriceCents     int64        `json:"base_price_cents"`
    OriginalPriceCents *int64       `json:"original_price_cents,omitempty"`
    MinPerOrder        int          `json:"min_per_order"`
    MaxPerOrder        int          `json:"max_per_order"`
    AvailableQuantity  int          `json:"available_quantity"`
    HasSeating         bool         `json:"has_seating"`
    SeatingSections    []SectionRef `json:"seating_sections,omitempty"`
}

// SectionRef binds a ticket type to a section, optionally overriding the
// seat color and the base price for seats of that section.
type SectionRef struct {
    SectionID          string `json:"section_id"`
    Color              string `json:"color,omitempty"`
    PriceOverrideCents *int64 `json:"price_override_cents,omitempty"`
}

// OrderLimits returns the per-order bounds with the defaults applied: at
// least one ticket, at most ten.
func (t TicketType) OrderLimits() (min, max int) {
    min, max = t.MinPerOrder, t.MaxPerOrder
    if min <= 0 {
        min = 1
    }
    if max <= 0 {
        max = 10
    }
    return min, max
}
