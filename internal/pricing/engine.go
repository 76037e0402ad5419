package pricing

import (
    "context"
    "errors"
    "hash/fnv"
    "log"
    "sync"
    "time"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/model"
)

// Engine is the pricing contract.  Callers depend on this interface only.
type Engine interface {
    // ComputeEffectivePrice prices a seat as the ticket type a seat click
    // would auto-assign.
    ComputeEffectivePrice(ctx context.Context, seatingID, seatUID string) (model.PriceDecision, error)
    // ComputeSeatPrice prices a seat sold as a specific ticket type.
    ComputeSeatPrice(ctx context.Context, seatingID, seatUID, ticketTypeID string) (model.PriceDecision, error)
    // ComputeBulkPrices is ComputeEffectivePrice over many seats.
    ComputeBulkPrices(ctx context.Context, seatingID string, seatUIDs []string) (map[string]model.PriceDecision, error)
    // ComputeTicketTypePrice prices a non-seated ticket type.
    ComputeTicketTypePrice(ctx context.Context, seatingID, ticketTypeID string) (model.PriceDecision, error)
    // PreviewRepricing reports what BulkReprice would do without persisting.
    PreviewRepricing(ctx context.Context, seatingID string, scope Scope, scopeRef string, rule Rule) ([]Change, error)
    // BulkReprice commits a rule and returns how many (seat, ticket type)
    // effective prices changed.
    BulkReprice(ctx context.Context, seatingID string, scope Scope, scopeRef string, rule Rule) (int, error)
}

// Change is one seat, priced as one of its ticket types, of a repricing
// preview.
type Change struct {
    SeatUID      string              `json:"seat_uid"`
    TicketTypeID string              `json:"ticket_type_id"`
    Old          model.PriceDecision `json:"old"`
    New          model.PriceDecision `json:"new"`
}

// Changed reports whether the effective price moved.
func (c Change) Changed() bool { return c.Old.EffectivePriceCents != c.New.EffectivePriceCents }

// Catalog is the part of the layout catalog the engine reads and writes.
type Catalog interface {
    Seating(ctx context.Context, id string) (*model.EventSeating, error)
    Overrides(ctx context.Context, seatingID string) (map[string]model.PriceOverride, error)
    SaveOverrides(ctx context.Context, seatingID string, overrides []model.PriceOverride) error
}

// Bindings resolves the ticket types of a seating.
type Bindings interface {
    Get(ctx context.Context, seatingID string) (*binding.Resolver, error)
}

// DynamicEngine is the Engine backed by the layout catalog.  Reads take no
// locks; commits of the same seating are serialized with each other and
// never touch seat inventory.
type DynamicEngine struct {
    catalog     Catalog
    bindings    Bindings
    defaultMode model.CommissionMode
    defaultRate float64
    now         func() time.Time

    locks [commitStripes]sync.Mutex // striped by seating id
}

const commitStripes = 64

// Option configures a DynamicEngine.
type Option func(*DynamicEngine)

// WithDefaultCommission sets the commission used when a seating has none.
func WithDefaultCommission(mode model.CommissionMode, rate float64) Option {
    return func(e *DynamicEngine) {
        if mode.Valid() {
            e.defaultMode = mode
        }
        if rate >= 0 {
            e.defaultRate = rate
        }
    }
}

// WithClock overrides time.Now for override timestamps.
func WithClock(now func() time.Time) Option {
    return func(e *DynamicEngine) { e.now = now }
}

// NewDynamicEngine builds an engine.  The default commission is 5% included.
func NewDynamicEngine(catalog Catalog, bindings Bindings, opts ...Option) *DynamicEngine {
    e := &DynamicEngine{
        catalog:     catalog,
        bindings:    bindings,
        defaultMode: model.CommissionIncluded,
        defaultRate: 5,
        now:         time.Now,
    }
    for _, opt := range opts {
        opt(e)
    }
    return e
}

var _ Engine = (*DynamicEngine)(nil)

// snapshot is everything needed to price seats of one seating.
type snapshot struct {
    seating   *model.EventSeating
    resolver  *binding.Resolver
    overrides map[string]model.PriceOverride
}

func (e *DynamicEngine) load(ctx context.Context, seatingID string) (*snapshot, error) {
    seating, err := e.catalog.Seating(ctx, seatingID)
    if err != nil {
        if errors.Is(err, apperr.ErrNotFound) {
            return nil, apperr.Invalid("event_seating_id", "unknown seating %q", seatingID)
        }
        return nil, err
    }
    resolver, err := e.bindings.Get(ctx, seatingID)
    if err != nil {
        return nil, err
    }
    overrides, err := e.catalog.Overrides(ctx, seatingID)
    if err != nil {
        return nil, err
    }
    return &snapshot{seating: seating, resolver: resolver, overrides: overrides}, nil
}

// input collects the ticket type level inputs: seating commission and
// target price, ticket type base and original price.
func (e *DynamicEngine) input(s *snapshot, tt model.TicketType) Input {
    in := Input{
        TicketTypeID:       tt.ID,
        BasePriceCents:     tt.BasePriceCents,
        Mode:               e.defaultMode,
        Rate:               e.defaultRate,
        TargetPriceCents:   s.seating.TargetPriceCents,
        OriginalPriceCents: tt.OriginalPriceCents,
    }
    if s.seating.CommissionMode != "" {
        in.Mode = s.seating.CommissionMode
    }
    if s.seating.CommissionRate != nil {
        in.Rate = *s.seating.CommissionRate
    }
    return in
}

// seatInput layers the section binding override and then the seat override
// on top of the ticket type inputs.
func (e *DynamicEngine) seatInput(s *snapshot, loc model.SeatLocation, tt model.TicketType, override *model.PriceOverride) Input {
    in := e.input(s, tt)
    in.SeatUID = loc.SeatUID
    if ref, ok := s.resolver.Binding(loc.SectionID, tt.ID); ok && ref.PriceOverrideCents != nil {
        in.BasePriceCents = *ref.PriceOverrideCents
    }
    if override != nil {
        in.BasePriceCents = override.BasePriceCents
        if override.CommissionMode != "" {
            in.Mode = override.CommissionMode
        }
        if override.CommissionRate != nil {
            in.Rate = *override.CommissionRate
        }
    }
    return in
}

func (s *snapshot) override(seatUID, ticketTypeID string) *model.PriceOverride {
    if o, ok := s.overrides[model.OverrideKey(seatUID, ticketTypeID)]; ok {
        return &o
    }
    return nil
}

func (e *DynamicEngine) priceLocation(s *snapshot, loc model.SeatLocation) (model.PriceDecision, error) {
    tt, ok := s.resolver.Resolve(loc.SectionID)
    if !ok {
        return model.PriceDecision{}, apperr.Invalid("seat_uid", "no ticket type sells section %q", loc.SectionID)
    }
    return Decide(e.seatInput(s, loc, tt, s.override(loc.SeatUID, tt.ID))), nil
}

func (e *DynamicEngine) ComputeEffectivePrice(ctx context.Context, seatingID, seatUID string) (model.PriceDecision, error) {
    s, err := e.load(ctx, seatingID)
    if err != nil {
        return model.PriceDecision{}, err
    }
    loc, ok := s.seating.Locate(seatUID)
    if !ok {
        return model.PriceDecision{}, apperr.NotFound("seat", seatUID)
    }
    return e.priceLocation(s, loc)
}

func (e *DynamicEngine) ComputeSeatPrice(ctx context.Context, seatingID, seatUID, ticketTypeID string) (model.PriceDecision, error) {
    s, err := e.load(ctx, seatingID)
    if err != nil {
        return model.PriceDecision{}, err
    }
    loc, ok := s.seating.Locate(seatUID)
    if !ok {
        return model.PriceDecision{}, apperr.NotFound("seat", seatUID)
    }
    tt, ok := s.resolver.TicketType(ticketTypeID)
    if !ok {
        return model.PriceDecision{}, apperr.Invalid("ticket_type_id", "unknown ticket type %q", ticketTypeID)
    }
    if _, ok := s.resolver.Binding(loc.SectionID, tt.ID); !ok {
        return model.PriceDecision{}, apperr.Invalid("ticket_type_id", "ticket type %q is not sold in section %q", tt.ID, loc.SectionID)
    }
    return Decide(e.seatInput(s, loc, tt, s.override(seatUID, tt.ID))), nil
}

func (e *DynamicEngine) ComputeBulkPrices(ctx context.Context, seatingID string, seatUIDs []string) (map[string]model.PriceDecision, error) {
    s, err := e.load(ctx, seatingID)
    if err != nil {
        return nil, err
    }
    index := make(map[string]model.SeatLocation)
    for _, l := range s.seating.Locations() {
        index[l.SeatUID] = l
    }
    out := make(map[string]model.PriceDecision, len(seatUIDs))
    for _, uid := range seatUIDs {
        loc, ok := index[uid]
        if !ok {
            return nil, apperr.NotFound("seat", uid)
        }
        d, err := e.priceLocation(s, loc)
        if err != nil {
            return nil, err
        }
        out[uid] = d
    }
    return out, nil
}

func (e *DynamicEngine) ComputeTicketTypePrice(ctx context.Context, seatingID, ticketTypeID string) (model.PriceDecision, error) {
    s, err := e.load(ctx, seatingID)
    if err != nil {
        return model.PriceDecision{}, err
    }
    tt, ok := s.resolver.TicketType(ticketTypeID)
    if !ok {
        return model.PriceDecision{}, apperr.Invalid("ticket_type_id", "unknown ticket type %q", ticketTypeID)
    }
    return Decide(e.input(s, tt)), nil
}

func (e *DynamicEngine) PreviewRepricing(ctx context.Context, seatingID string, scope Scope, scopeRef string, rule Rule) ([]Change, error) {
    changes, _, err := e.plan(ctx, seatingID, scope, scopeRef, rule)
    return changes, err
}

func (e *DynamicEngine) BulkReprice(ctx context.Context, seatingID string, scope Scope, scopeRef string, rule Rule) (int, error) {
    mu := e.lock(seatingID)
    mu.Lock()
    defer mu.Unlock()

    changes, writes, err := e.plan(ctx, seatingID, scope, scopeRef, rule)
    if err != nil {
        return 0, err
    }
    if len(writes) > 0 {
        if err := e.catalog.SaveOverrides(ctx, seatingID, writes); err != nil {
            return 0, err
        }
    }
    affected := 0
    for _, c := range changes {
        if c.Changed() {
            affected++
        }
    }
    log.Printf("pricing: repriced seating %s scope=%s ref=%q kind=%s prices=%d affected=%d", seatingID, scope, scopeRef, rule.Kind, len(changes), affected)
    return affected, nil
}

// plan computes the old and new decision of every seat in scope, once per
// ticket type sold on it, together with the overrides that commit them.
// Preview and commit share it, so a preview always matches what a commit
// right after it writes.
func (e *DynamicEngine) plan(ctx context.Context, seatingID string, scope Scope, scopeRef string, rule Rule) ([]Change, []model.PriceOverride, error) {
    if err := rule.Validate(); err != nil {
        return nil, nil, err
    }
    s, err := e.load(ctx, seatingID)
    if err != nil {
        return nil, nil, err
    }
    if rule.TicketTypeID != "" {
        if _, ok := s.resolver.TicketType(rule.TicketTypeID); !ok {
            return nil, nil, apperr.Invalid("ticket_type_id", "unknown ticket type %q", rule.TicketTypeID)
        }
    }
    locs, err := resolveScope(s.seating, scope, scopeRef)
    if err != nil {
        return nil, nil, err
    }

    now := e.now().UTC()
    changes := make([]Change, 0, len(locs))
    var writes []model.PriceOverride
    for _, loc := range locs {
        for _, tt := range s.resolver.ForSection(loc.SectionID) {
            if rule.TicketTypeID != "" && tt.ID != rule.TicketTypeID {
                continue
            }
            cur := s.override(loc.SeatUID, tt.ID)
            oldIn := e.seatInput(s, loc, tt, cur)

            next := model.PriceOverride{SeatUID: loc.SeatUID, TicketTypeID: tt.ID, BasePriceCents: rule.Apply(oldIn.BasePriceCents), UpdatedAt: now}
            if cur != nil {
                next.CommissionMode = cur.CommissionMode
                next.CommissionRate = cur.CommissionRate
            }
            if rule.CommissionMode != "" {
                next.CommissionMode = rule.CommissionMode
            }
            if rule.CommissionRate != nil {
                rate := *rule.CommissionRate
                next.CommissionRate = &rate
            }

            changes = append(changes, Change{
                SeatUID:      loc.SeatUID,
                TicketTypeID: tt.ID,
                Old:          Decide(oldIn),
                New:          Decide(e.seatInput(s, loc, tt, &next)),
            })
            if needsWrite(cur, next, oldIn.BasePriceCents) {
                writes = append(writes, next)
            }
        }
    }
    return changes, writes, nil
}

// needsWrite avoids pinning seats whose inputs the rule leaves untouched, so
// later ticket type edits still reach them.
func needsWrite(cur *model.PriceOverride, next model.PriceOverride, oldBase int64) bool {
    if cur == nil {
        return next.BasePriceCents != oldBase || next.CommissionMode != "" || next.CommissionRate != nil
    }
    if cur.BasePriceCents != next.BasePriceCents || cur.CommissionMode != next.CommissionMode {
        return true
    }
    switch {
    case cur.CommissionRate == nil && next.CommissionRate == nil:
        return false
    case cur.CommissionRate == nil || next.CommissionRate == nil:
        return true
    }
    return *cur.CommissionRate != *next.CommissionRate
}

func (e *DynamicEngine) lock(seatingID string) *sync.Mutex {
    h := fnv.New32a()
    _, _ = h.Write([]byte(seatingID))
    return &e.locks[h.Sum32()%commitStripes]
}
