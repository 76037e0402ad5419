package pricing

import (
    "math"
    "strings"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

// Scope is the granularity a repricing rule applies to.
type Scope string

const (
    ScopeEvent   Scope = "event"
    ScopeSection Scope = "section"
    ScopeRow     Scope = "row"
    ScopeSeat    Scope = "seat"
)

// RowRef builds the scope_ref of a row.
func RowRef(sectionID, rowLabel string) string { return sectionID + "/" + rowLabel }

// RuleKind selects how a rule derives the new base price.
type RuleKind string

const (
    RuleSet     RuleKind = "set"     // base = AmountCents
    RulePercent RuleKind = "percent" // base = base * (1 + Percent/100)
    RuleAmount  RuleKind = "amount"  // base = base + AmountCents
)

// Rule is a repricing rule.  The result never drops below FloorCents.
// CommissionMode and CommissionRate, when set, override the seating's
// commission for every seat in scope.  TicketTypeID restricts the rule to
// one ticket type; empty reprices every type sold on the seats in scope.
type Rule struct {
    Kind           RuleKind             `json:"kind"`
    TicketTypeID   string               `json:"ticket_type_id,omitempty"`
    AmountCents    int64                `json:"amount_cents,omitempty"`
    Percent        float64              `json:"percent,omitempty"`
    FloorCents     int64                `json:"floor_cents,omitempty"`
    CommissionMode model.CommissionMode `json:"commission_mode,omitempty"`
    CommissionRate *float64             `json:"commission_rate,omitempty"`
}

// Validate rejects rules that cannot be applied.
func (r Rule) Validate() error {
    switch r.Kind {
    case RuleSet:
        if r.AmountCents < 0 {
            return apperr.Invalid("amount_cents", "must not be negative")
        }
    case RulePercent:
        if r.Percent <= -100 {
            return apperr.Invalid("percent", "must be greater than -100")
        }
    case RuleAmount:
    default:
        return apperr.Invalid("kind", "unknown rule kind %q", r.Kind)
    }
    if r.FloorCents < 0 {
        return apperr.Invalid("floor_cents", "must not be negative")
    }
    if r.CommissionMode != "" && !r.CommissionMode.Valid() {
        return apperr.Invalid("commission_mode", "unknown commission mode %q", r.CommissionMode)
    }
    if r.CommissionRate != nil && *r.CommissionRate < 0 {
        return apperr.Invalid("commission_rate", "must not be negative")
    }
    return nil
}

// Apply derives the new base price from the current one.
func (r Rule) Apply(base int64) int64 {
    var next int64
    switch r.Kind {
    case RuleSet:
        next = r.AmountCents
    case RulePercent:
        next = int64(math.Round(float64(base) * (1 + r.Percent/100)))
    case RuleAmount:
        next = base + r.AmountCents
    default:
        next = base
    }
    if next < r.FloorCents {
        next = r.FloorCents
    }
    if next < 0 {
        next = 0
    }
    return next
}

// resolveScope lists the seats a scope covers.  A ref that does not resolve
// inside the seating is a validation error; a scope that resolves to no
// seats is not.
func resolveScope(seating *model.EventSeating, scope Scope, ref string) ([]model.SeatLocation, error) {
    switch scope {
    case ScopeEvent:
        if ref != "" {
            return nil, apperr.Invalid("scope_ref", "must be empty for event scope")
        }
        return seating.Locations(), nil
    case ScopeSection:
        if ref == "" {
            return nil, apperr.Invalid("scope_ref", "section id is required")
        }
        if _, ok := seating.Section(ref); !ok {
            return nil, apperr.Invalid("scope_ref", "section %q not found in seating %s", ref, seating.ID)
        }
        return filter(seating, func(l model.SeatLocation) bool { return l.SectionID == ref }), nil
    case ScopeRow:
        sectionID, rowLabel, ok := strings.Cut(ref, "/")
        if !ok || sectionID == "" || rowLabel == "" {
            return nil, apperr.Invalid("scope_ref", "row scope needs section_id/row_label, got %q", ref)
        }
        sec, found := seating.Section(sectionID)
        if !found {
            return nil, apperr.Invalid("scope_ref", "section %q not found in seating %s", sectionID, seating.ID)
        }
        if _, found := sec.Row(rowLabel); !found {
            return nil, apperr.Invalid("scope_ref", "row %q not found in section %q", rowLabel, sectionID)
        }
        return filter(seating, func(l model.SeatLocation) bool {
            return l.SectionID == sectionID && l.RowLabel == rowLabel
        }), nil
    case ScopeSeat:
        if ref == "" {
            return nil, apperr.Invalid("scope_ref", "seat uid is required")
        }
        loc, ok := seating.Locate(ref)
        if !ok {
            return nil, apperr.Invalid("scope_ref", "seat %q not found in seating %s", ref, seating.ID)
        }
        return []model.SeatLocation{loc}, nil
    }
    return nil, apperr.Invalid("scope", "unknown scope %q", scope)
}

func filter(seating *model.EventSeating, keep func(model.SeatLocation) bool) []model.SeatLocation {
    var out []model.SeatLocation
    for _, l := range seating.Locations() {
        if keep(l) {
            out = append(out, l)
        }
    }
    return out
}
