// Package binding indexes which ticket types may sell seats in which
// sections.  A Resolver is immutable once built; the Registry swaps whole
// resolvers when ticket types change.
package binding

import (
    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

// Resolver answers section → ticket types and ticket type → sections.
type Resolver struct {
    types     []model.TicketType
    byID      map[string]int
    bySection map[string][]int // indexes into types, declaration order
}

// New validates the declarations and builds the index.  A seated ticket
// type must name at least one section and a non-seated one must name none.
func New(ticketTypes []model.TicketType) (*Resolver, error) {
    r := &Resolver{
        types:     make([]model.TicketType, len(ticketTypes)),
        byID:      make(map[string]int, len(ticketTypes)),
        bySection: make(map[string][]int),
    }
    copy(r.types, ticketTypes)
    for i, tt := range r.types {
        if tt.ID == "" {
            return nil, apperr.Invalid("ticket_types", "ticket type #%d has no id", i+1)
        }
        if _, dup := r.byID[tt.ID]; dup {
            return nil, apperr.Invalid("ticket_types", "duplicate ticket type %q", tt.ID)
        }
        if tt.HasSeating && len(tt.SeatingSections) == 0 {
            return nil, apperr.Invalid("seating_sections", "ticket type %q has seating but no bound sections", tt.ID)
        }
        if !tt.HasSeating && len(tt.SeatingSections) > 0 {
            return nil, apperr.Invalid("seating_sections", "ticket type %q has no seating but declares sections", tt.ID)
        }
        r.byID[tt.ID] = i
        seen := make(map[string]bool, len(tt.SeatingSections))
        for _, ref := range tt.SeatingSections {
            if seen[ref.SectionID] {
                continue
            }
            seen[ref.SectionID] = true
            r.bySection[ref.SectionID] = append(r.bySection[ref.SectionID], i)
        }
    }
    return r, nil
}

// ForSection returns every ticket type eligible for the section in
// declaration order.
func (r *Resolver) ForSection(sectionID string) []model.TicketType {
    idx := r.bySection[sectionID]
    out := make([]model.TicketType, 0, len(idx))
    for _, i := range idx {
        out = append(out, r.types[i])
    }
    return out
}

// Resolve picks the ticket type used when a buyer clicks a seat without
// choosing one: the first declared type bound to the section.
func (r *Resolver) Resolve(sectionID string) (model.TicketType, bool) {
    idx := r.bySection[sectionID]
    if len(idx) == 0 {
        return model.TicketType{}, false
    }
    return r.types[idx[0]], true
}

// SectionsFor returns the section bindings of a ticket type.
func (r *Resolver) SectionsFor(ticketTypeID string) []model.SectionRef {
    i, ok := r.byID[ticketTypeID]
    if !ok {
        return nil
    }
    return r.types[i].SeatingSections
}

// TicketType looks a ticket type up by id.
func (r *Resolver) TicketType(id string) (model.TicketType, bool) {
    i, ok := r.byID[id]
    if !ok {
        return model.TicketType{}, false
    }
    return r.types[i], true
}

// TicketTypes returns all ticket types in declaration order.
func (r *Resolver) TicketTypes() []model.TicketType {
    out := make([]model.TicketType, len(r.types))
    copy(out, r.types)
    return out
}

// Binding returns the section reference tying a ticket type to a section.
func (r *Resolver) Binding(sectionID, ticketTypeID string) (model.SectionRef, bool) {
    for _, ref := range r.SectionsFor(ticketTypeID) {
        if ref.SectionID == sectionID {
            return ref, true
        }
    }
    return model.SectionRef{}, false
}
