// Package pricing turns seat and ticket type inputs into price decisions and
// applies bulk repricing rules.  Decide is a pure function; the engine only
// gathers its inputs.
package pricing

import (
    "math"

    "github.com/iliyamo/seating-core/internal/model"
)

// Input carries everything Decide needs.  Money is in cents and Rate is a
// percentage (5 means 5%).
type Input struct {
    SeatUID            string
    TicketTypeID       string
    BasePriceCents     int64
    Mode               model.CommissionMode
    Rate               float64
    TargetPriceCents   *int64
    OriginalPriceCents *int64
}

// Decide computes the price decision for one seat or ticket type.
//
// included:     effective = base, net = base / (1 + rate), commission = base - net
// added_on_top: net = base, commission = base * rate, effective = base + commission
//
// The display price is the pre-fee base.  The reference price is the event
// target price when it exceeds the display price, otherwise the ticket
// type's original price when that does.
func Decide(in Input) model.PriceDecision {
    mode := in.Mode
    if mode == "" {
        mode = model.CommissionIncluded
    }
    base := in.BasePriceCents
    d := model.PriceDecision{
        SeatUID:           in.SeatUID,
        TicketTypeID:      in.TicketTypeID,
        BasePriceCents:    base,
        CommissionMode:    mode,
        CommissionRate:    in.Rate,
        DisplayPriceCents: base,
    }

    switch mode {
    case model.CommissionAddedOnTop:
        d.NetToSellerCents = base
        d.CommissionCents = roundCents(float64(base) * in.Rate / 100)
        d.FeeCents = d.CommissionCents
        d.EffectivePriceCents = base + d.CommissionCents
    default:
        d.NetToSellerCents = roundCents(float64(base) / (1 + in.Rate/100))
        d.CommissionCents = base - d.NetToSellerCents
        d.EffectivePriceCents = base
    }

    var ref *int64
    switch {
    case in.TargetPriceCents != nil && *in.TargetPriceCents > d.DisplayPriceCents:
        v := *in.TargetPriceCents
        ref = &v
    case in.OriginalPriceCents != nil && *in.OriginalPriceCents > d.DisplayPriceCents:
        v := *in.OriginalPriceCents
        ref = &v
    }
    if ref != nil {
        pct := int(math.Round((1 - float64(d.DisplayPriceCents)/float64(*ref)) * 100))
        d.ReferencePriceCents = ref
        d.DiscountPercent = &pct
    }
    return d
}

func roundCents(v float64) int64 { return int64(math.Round(v)) }
