package model

import "time"

// PriceDecision is the outcome of pricing one seat or one non-seated ticket
// type.  All amounts are integer minor units (cents).
//
// DisplayPriceCents is what the buyer sees before checkout and
// EffectivePriceCents is what is charged.  In included mode they are equal;
// in added_on_top mode FeeCents carries the difference as a separate line.
type PriceDecision struct {
    SeatUID             string         `json:"seat_uid,omitempty"`
    TicketTypeID        string         `json:"ticket_type_id"`
    BasePriceCents      int64          `json:"base_price_cents"`
    CommissionMode      CommissionMode `json:"commission_mode"`
    CommissionRate      float64        `json:"commission_rate"`
    NetToSellerCents    int64          `json:"net_to_seller_cents"`
    CommissionCents     int64          `json:"commission_cents"`
    FeeCents            int64          `json:"fee_cents"`
    EffectivePriceCents int64          `json:"effective_price_cents"`
    DisplayPriceCents   int64          `json:"display_price_cents"`
    ReferencePriceCents *int64         `json:"reference_price_cents,omitempty"`
    DiscountPercent     *int           `json:"discount_percent,omitempty"`
}

// PriceOverride is a seat-level pricing input written by a bulk reprice for
// one ticket type sold on that seat.  It takes precedence over section and
// ticket type prices of that type only.  Empty commission fields inherit the
// seating's commission settings.
type PriceOverride struct {
    SeatUID        string         `json:"seat_uid"`
    TicketTypeID   string         `json:"ticket_type_id"`
    BasePriceCents int64          `json:"base_price_cents"`
    CommissionMode CommissionMode `json:"commission_mode,omitempty"`
    CommissionRate *float64       `json:"commission_rate,omitempty"`
    UpdatedAt      time.Time      `json:"updated_at"`
}

// Key identifies the override within its seating.
func (o PriceOverride) Key() string { return OverrideKey(o.SeatUID, o.TicketTypeID) }

// OverrideKey is the map key of the override of a seat sold as a ticket type.
func OverrideKey(seatUID, ticketTypeID string) string { return seatUID + "/" + ticketTypeID }
