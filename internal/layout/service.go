package layout

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/inventory"
    "github.com/iliyamo/seating-core/internal/model"
)

// Service publishes layouts and keeps inventory and the binding index in
// step with the catalog.
type Service struct {
    catalog  Catalog
    inv      inventory.Store
    bindings *binding.Registry
    now      func() time.Time
    onChange []func(ctx context.Context, seatingID string)
}

// OnChange registers fn to run after a layout is published or its ticket
// types are replaced.  Register during wiring, before the service is used.
func (s *Service) OnChange(fn func(ctx context.Context, seatingID string)) {
    s.onChange = append(s.onChange, fn)
}

func (s *Service) changed(ctx context.Context, seatingID string) {
    for _, fn := range s.onChange {
        fn(ctx, seatingID)
    }
}

// NewService wires a Service.
func NewService(catalog Catalog, inv inventory.Store, bindings *binding.Registry) *Service {
    return &Service{catalog: catalog, inv: inv, bindings: bindings, now: time.Now}
}

// Publish stores a new layout with its ticket types, seeds the inventory
// and builds the binding index.  A layout is published once; afterwards
// only ticket types change.
func (s *Service) Publish(ctx context.Context, seating *model.EventSeating, types []model.TicketType) error {
    if err := validateSeating(seating); err != nil {
        return err
    }
    if _, err := s.catalog.Seating(ctx, seating.ID); err == nil {
        return fmt.Errorf("seating %s already published: %w", seating.ID, apperr.ErrConflict)
    } else if !errors.Is(err, apperr.ErrNotFound) {
        return err
    }
    types, err := bindTypes(seating, types)
    if err != nil {
        return err
    }

    seating.PublishedAt = s.now().UTC()
    if err := s.catalog.PutSeating(ctx, seating); err != nil {
        return fmt.Errorf("store seating: %w", err)
    }
    if err := s.catalog.PutTicketTypes(ctx, seating.ID, types); err != nil {
        return fmt.Errorf("store ticket types: %w", err)
    }
    if err := s.inv.Seed(ctx, seating.ID, seating.InventorySeats()); err != nil {
        return fmt.Errorf("seed inventory: %w", err)
    }
    if _, err := s.bindings.Rebuild(ctx, seating.ID); err != nil {
        return err
    }
    s.changed(ctx, seating.ID)
    log.Printf("layout: published seating %s (%d sections, %d ticket types)", seating.ID, len(seating.Sections), len(types))
    return nil
}

// ReplaceTicketTypes swaps the ticket types of a published seating and
// rebuilds its binding index.
func (s *Service) ReplaceTicketTypes(ctx context.Context, seatingID string, types []model.TicketType) error {
    seating, err := s.catalog.Seating(ctx, seatingID)
    if err != nil {
        return err
    }
    types, err = bindTypes(seating, types)
    if err != nil {
        return err
    }
    if err := s.catalog.PutTicketTypes(ctx, seatingID, types); err != nil {
        return fmt.Errorf("store ticket types: %w", err)
    }
    if _, err := s.bindings.Rebuild(ctx, seatingID); err != nil {
        return err
    }
    s.changed(ctx, seatingID)
    return nil
}

// Seating returns a published layout.
func (s *Service) Seating(ctx context.Context, id string) (*model.EventSeating, error) {
    return s.catalog.Seating(ctx, id)
}

func validateSeating(seating *model.EventSeating) error {
    if seating == nil || seating.ID == "" {
        return apperr.Invalid("id", "seating id is required")
    }
    if len(seating.Sections) == 0 {
        return apperr.Invalid("sections", "at least one section is required")
    }
    if seating.CommissionMode != "" && !seating.CommissionMode.Valid() {
        return apperr.Invalid("commission_mode", "unknown commission mode %q", seating.CommissionMode)
    }
    if seating.CommissionRate != nil && *seating.CommissionRate < 0 {
        return apperr.Invalid("commission_rate", "must not be negative")
    }
    sections := make(map[string]bool, len(seating.Sections))
    seats := make(map[string]bool)
    for _, sec := range seating.Sections {
        if sec.ID == "" {
            return apperr.Invalid("sections", "section without id")
        }
        if sections[sec.ID] {
            return apperr.Invalid("sections", "duplicate section %q", sec.ID)
        }
        sections[sec.ID] = true
        for _, row := range sec.Rows {
            for _, def := range row.Seats {
                if def.UID == "" {
                    return apperr.Invalid("seats", "seat without uid in section %q row %q", sec.ID, row.Label)
                }
                if seats[def.UID] {
                    return apperr.Invalid("seats", "duplicate seat uid %q", def.UID)
                }
                seats[def.UID] = true
            }
        }
    }
    return nil
}

// bindTypes checks the ticket types against the layout and stamps them with
// the seating id.
func bindTypes(seating *model.EventSeating, types []model.TicketType) ([]model.TicketType, error) {
    if _, err := binding.New(types); err != nil {
        return nil, err
    }
    out := make([]model.TicketType, len(types))
    for i, tt := range types {
        for _, ref := range tt.SeatingSections {
            if _, ok := seating.Section(ref.SectionID); !ok {
                return nil, apperr.Invalid("seating_sections", "ticket type %q references unknown section %q", tt.ID, ref.SectionID)
            }
        }
        if tt.BasePriceCents < 0 {
            return nil, apperr.Invalid("base_price_cents", "ticket type %q has a negative price", tt.ID)
        }
        tt.EventSeatingID = seating.ID
        out[i] = tt
    }
    return out, nil
}
