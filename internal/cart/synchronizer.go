// Package cart keeps a buyer's confirmed selection for a seating in step
// with the hold manager.  A proposed selection becomes the cart only after
// the server accepted its hold batch; until then the previous snapshot
// stays authoritative.
package cart

import (
    "context"
    "errors"
    "fmt"
    "hash/fnv"
    "log"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/hold"
    "github.com/iliyamo/seating-core/internal/model"
)

const (
    defaultCartTTL = 30 * time.Minute
    // expiryGrace keeps a cart readable for a while after its hold lapsed,
    // so the buyer sees the expiry instead of an empty cart.
    expiryGrace = 10 * time.Minute
    lockStripes = 256
)

// Selection is a proposed cart.  Seats maps a seat uid to its ticket type,
// empty for automatic assignment.  Quantities covers ticket types sold
// without seats.
type Selection struct {
    Seats      map[string]string `json:"seats"`
    Quantities map[string]int    `json:"quantities"`
}

// Snapshot is the last confirmed cart of a holder for one seating.
type Snapshot struct {
    HolderID            string               `json:"holder_id"`
    EventSeatingID      string               `json:"event_seating_id"`
    Items               []model.CartLineItem `json:"items"`
    HoldID              string               `json:"hold_id,omitempty"`
    HoldExpiresAt       *time.Time           `json:"hold_expires_at,omitempty"`
    TotalDisplayCents   int64                `json:"total_display_cents"`
    TotalFeeCents       int64                `json:"total_fee_cents"`
    TotalEffectiveCents int64                `json:"total_effective_cents"`
    // Expired is set on read when the hold behind the seat lines lapsed or
    // no longer holds exactly those seats; the seat lines are dropped.
    Expired   bool      `json:"expired,omitempty"`
    UpdatedAt time.Time `json:"updated_at"`
}

// Selection returns the selection the snapshot was confirmed from.
func (s Snapshot) Selection() Selection {
    sel := Selection{Seats: map[string]string{}, Quantities: map[string]int{}}
    for _, item := range s.Items {
        if len(item.Seats) > 0 {
            for _, uid := range item.Seats {
                sel.Seats[uid] = item.TicketTypeID
            }
            continue
        }
        sel.Quantities[item.TicketTypeID] = item.Quantity
    }
    return sel
}

// Holds is the part of the hold manager the cart drives.
type Holds interface {
    Hold(ctx context.Context, req hold.Request) (model.SeatHold, error)
    Release(ctx context.Context, holderID, seatingID string, seatUIDs []string) (int, error)
    HolderHold(ctx context.Context, holderID, seatingID string) (model.SeatHold, bool, error)
}

// Pricer prices cart lines.
type Pricer interface {
    ComputeSeatPrice(ctx context.Context, seatingID, seatUID, ticketTypeID string) (model.PriceDecision, error)
    ComputeTicketTypePrice(ctx context.Context, seatingID, ticketTypeID string) (model.PriceDecision, error)
}

// Bindings resolves the ticket types of a seating.
type Bindings interface {
    Get(ctx context.Context, seatingID string) (*binding.Resolver, error)
}

// Synchronizer reconciles proposed selections with the hold manager.
type Synchronizer struct {
    holds    Holds
    pricer   Pricer
    bindings Bindings
    store    Store
    now      func() time.Time
    ttl      time.Duration

    locks [lockStripes]sync.Mutex // striped by holder and seating
}

type Option func(*Synchronizer)

// WithCartTTL sets how long a cart is kept after its last change.  A cart
// whose hold runs longer is kept until the hold lapses.
func WithCartTTL(d time.Duration) Option {
    return func(s *Synchronizer) {
        if d > 0 {
            s.ttl = d
        }
    }
}

func WithClock(now func() time.Time) Option {
    return func(s *Synchronizer) { s.now = now }
}

func NewSynchronizer(holds Holds, pricer Pricer, bindings Bindings, store Store, opts ...Option) *Synchronizer {
    s := &Synchronizer{holds: holds, pricer: pricer, bindings: bindings, store: store, now: time.Now, ttl: defaultCartTTL}
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// Sync submits one hold batch for the selection and, on success, replaces
// the holder's whole cart for the seating.  An empty seat set releases the
// holder's hold.  On failure the stored cart is left untouched and the
// holds are put back to match it.
func (s *Synchronizer) Sync(ctx context.Context, holderID, seatingID string, sel Selection) (Snapshot, error) {
    mu := s.lock(holderID, seatingID)
    mu.Lock()
    defer mu.Unlock()
    return s.sync(ctx, holderID, seatingID, sel)
}

// Toggle adds the seat to the confirmed selection, or removes it if it is
// already there, and syncs.
func (s *Synchronizer) Toggle(ctx context.Context, holderID, seatingID, seatUID string) (Snapshot, error) {
    if seatUID == "" {
        return Snapshot{}, apperr.Invalid("seat_uid", "seat is required")
    }
    mu := s.lock(holderID, seatingID)
    mu.Lock()
    defer mu.Unlock()

    cur, err := s.load(ctx, holderID, seatingID)
    if err != nil {
        return Snapshot{}, err
    }
    sel := cur.Selection()
    if _, ok := sel.Seats[seatUID]; ok {
        delete(sel.Seats, seatUID)
    } else {
        sel.Seats[seatUID] = ""
    }
    return s.sync(ctx, holderID, seatingID, sel)
}

// SetQuantity changes the quantity of a ticket type sold without seats.
func (s *Synchronizer) SetQuantity(ctx context.Context, holderID, seatingID, ticketTypeID string, qty int) (Snapshot, error) {
    mu := s.lock(holderID, seatingID)
    mu.Lock()
    defer mu.Unlock()

    cur, err := s.load(ctx, holderID, seatingID)
    if err != nil {
        return Snapshot{}, err
    }
    sel := cur.Selection()
    if qty == 0 {
        delete(sel.Quantities, ticketTypeID)
    } else {
        sel.Quantities[ticketTypeID] = qty
    }
    return s.sync(ctx, holderID, seatingID, sel)
}

// Snapshot returns the last confirmed cart.
func (s *Synchronizer) Snapshot(ctx context.Context, holderID, seatingID string) (Snapshot, error) {
    return s.load(ctx, holderID, seatingID)
}

// Clear releases the holder's hold and removes the cart.
func (s *Synchronizer) Clear(ctx context.Context, holderID, seatingID string) error {
    mu := s.lock(holderID, seatingID)
    mu.Lock()
    defer mu.Unlock()

    if _, err := s.holds.Release(ctx, holderID, seatingID, nil); err != nil {
        return fmt.Errorf("release hold: %w", err)
    }
    return s.store.Delete(ctx, holderID, seatingID)
}

func (s *Synchronizer) sync(ctx context.Context, holderID, seatingID string, sel Selection) (Snapshot, error) {
    if holderID == "" {
        return Snapshot{}, apperr.Invalid("holder_id", "holder is required")
    }
    resolver, err := s.bindings.Get(ctx, seatingID)
    if errors.Is(err, apperr.ErrNotFound) {
        return Snapshot{}, apperr.Invalid("event_seating_id", "unknown seating %q", seatingID)
    }
    if err != nil {
        return Snapshot{}, err
    }
    if err := checkQuantities(resolver, sel.Quantities); err != nil {
        return Snapshot{}, err
    }
    // Quantity lines do not depend on the hold; price them before touching it.
    quantityPrices, err := s.quantityPrices(ctx, seatingID, sel.Quantities)
    if err != nil {
        return Snapshot{}, err
    }
    prev, err := s.load(ctx, holderID, seatingID)
    if err != nil {
        return Snapshot{}, err
    }

    var held model.SeatHold
    if len(sel.Seats) > 0 {
        held, err = s.holds.Hold(ctx, holdRequest(holderID, seatingID, sel.Seats))
        if err != nil {
            return Snapshot{}, err
        }
    } else if _, err := s.holds.Release(ctx, holderID, seatingID, nil); err != nil {
        return Snapshot{}, fmt.Errorf("release hold: %w", err)
    }

    snap, err := s.build(ctx, resolver, holderID, seatingID, held, sel.Quantities, quantityPrices)
    if err == nil {
        if err = s.store.Replace(ctx, snap, s.entryTTL(snap)); err != nil {
            err = fmt.Errorf("store cart: %w", err)
        }
    }
    if err != nil {
        s.restore(ctx, prev)
        return Snapshot{}, err
    }
    return snap, nil
}

// restore puts the holds back to the previous snapshot after a change failed
// past the hold step.  Reads reconcile the stored cart with whatever hold
// survives, so a failed restore only costs the buyer the old seats.
func (s *Synchronizer) restore(ctx context.Context, prev Snapshot) {
    seats := prev.Selection().Seats
    if len(seats) == 0 {
        if _, err := s.holds.Release(ctx, prev.HolderID, prev.EventSeatingID, nil); err != nil {
            log.Printf("cart: release after failed sync holder=%s seating=%s: %v", prev.HolderID, prev.EventSeatingID, err)
        }
        return
    }
    if _, err := s.holds.Hold(ctx, holdRequest(prev.HolderID, prev.EventSeatingID, seats)); err != nil {
        log.Printf("cart: restore hold holder=%s seating=%s: %v", prev.HolderID, prev.EventSeatingID, err)
        if _, err := s.holds.Release(ctx, prev.HolderID, prev.EventSeatingID, nil); err != nil {
            log.Printf("cart: release after failed restore holder=%s seating=%s: %v", prev.HolderID, prev.EventSeatingID, err)
        }
    }
}

// build prices a held selection into a snapshot.
func (s *Synchronizer) build(ctx context.Context, resolver *binding.Resolver, holderID, seatingID string, held model.SeatHold, quantities map[string]int, quantityPrices map[string]model.PriceDecision) (Snapshot, error) {
    snap := Snapshot{HolderID: holderID, EventSeatingID: seatingID, UpdatedAt: s.now().UTC()}
    if held.ID != "" {
        exp := held.ExpiresAt
        snap.HoldID, snap.HoldExpiresAt = held.ID, &exp
    }
    items, err := s.lineItems(ctx, resolver, seatingID, held, quantities, quantityPrices)
    if err != nil {
        return Snapshot{}, err
    }
    snap.Items = items
    snap.total()
    return snap, nil
}

// entryTTL outlives both the cart TTL and the hold, so a lapsed hold is
// seen on read as an expired cart rather than a missing one.
func (s *Synchronizer) entryTTL(snap Snapshot) time.Duration {
    ttl := s.ttl
    if snap.HoldExpiresAt != nil {
        if left := snap.HoldExpiresAt.Sub(s.now()); left > ttl {
            ttl = left
        }
    }
    return ttl + expiryGrace
}

func (s *Synchronizer) quantityPrices(ctx context.Context, seatingID string, quantities map[string]int) (map[string]model.PriceDecision, error) {
    out := make(map[string]model.PriceDecision, len(quantities))
    for id, qty := range quantities {
        if qty <= 0 {
            continue
        }
        d, err := s.pricer.ComputeTicketTypePrice(ctx, seatingID, id)
        if err != nil {
            return nil, fmt.Errorf("price ticket type %s: %w", id, err)
        }
        out[id] = d
    }
    return out, nil
}

func holdRequest(holderID, seatingID string, seats map[string]string) hold.Request {
    uids := make([]string, 0, len(seats))
    for uid := range seats {
        uids = append(uids, uid)
    }
    sort.Strings(uids)
    req := hold.Request{HolderID: holderID, EventSeatingID: seatingID}
    for _, uid := range uids {
        req.Seats = append(req.Seats, model.HeldSeat{SeatUID: uid, TicketTypeID: seats[uid]})
    }
    return req
}

func (s *Snapshot) total() {
    s.TotalDisplayCents, s.TotalFeeCents, s.TotalEffectiveCents = 0, 0, 0
    for _, item := range s.Items {
        s.TotalDisplayCents += item.TotalDisplayCents
        s.TotalFeeCents += item.TotalFeeCents
        s.TotalEffectiveCents += item.TotalEffectiveCents
    }
}

// lineItems builds one item per ticket type, in declaration order.
func (s *Synchronizer) lineItems(ctx context.Context, resolver *binding.Resolver, seatingID string, held model.SeatHold, quantities map[string]int, quantityPrices map[string]model.PriceDecision) ([]model.CartLineItem, error) {
    seatsByType := make(map[string][]string)
    for _, hs := range held.Seats {
        seatsByType[hs.TicketTypeID] = append(seatsByType[hs.TicketTypeID], hs.SeatUID)
    }

    var items []model.CartLineItem
    for _, tt := range resolver.TicketTypes() {
        item := model.CartLineItem{EventSeatingID: seatingID, TicketTypeID: tt.ID, TicketTypeName: tt.Name}
        if uids := seatsByType[tt.ID]; len(uids) > 0 {
            sort.Strings(uids)
            exp := held.ExpiresAt
            item.Seats, item.Quantity = uids, len(uids)
            item.HoldID, item.HoldExpiresAt = held.ID, &exp
            for _, uid := range uids {
                d, err := s.pricer.ComputeSeatPrice(ctx, seatingID, uid, tt.ID)
                if err != nil {
                    return nil, fmt.Errorf("price seat %s: %w", uid, err)
                }
                item.Prices = append(item.Prices, model.SeatPrice{
                    SeatUID:        uid,
                    DisplayCents:   d.DisplayPriceCents,
                    FeeCents:       d.FeeCents,
                    EffectiveCents: d.EffectivePriceCents,
                })
                item.TotalDisplayCents += d.DisplayPriceCents
                item.TotalFeeCents += d.FeeCents
                item.TotalEffectiveCents += d.EffectivePriceCents
            }
            item.UnitDisplayCents = uniformUnit(item.Prices)
            items = append(items, item)
            continue
        }
        if qty := quantities[tt.ID]; qty > 0 {
            d, ok := quantityPrices[tt.ID]
            if !ok {
                var err error
                if d, err = s.pricer.ComputeTicketTypePrice(ctx, seatingID, tt.ID); err != nil {
                    return nil, fmt.Errorf("price ticket type %s: %w", tt.ID, err)
                }
            }
            n := int64(qty)
            item.Quantity = qty
            item.UnitDisplayCents = d.DisplayPriceCents
            item.TotalDisplayCents = n * d.DisplayPriceCents
            item.TotalFeeCents = n * d.FeeCents
            item.TotalEffectiveCents = n * d.EffectivePriceCents
            items = append(items, item)
        }
    }
    return items, nil
}

// load returns the stored cart reconciled with the holder's live hold.
// Seat lines are kept only while the live hold holds exactly those seats;
// its id and deadline win over the stored ones, so checkout extensions and
// restored holds show through.  A cart lost from the store while its hold
// is live is rebuilt from the hold.
func (s *Synchronizer) load(ctx context.Context, holderID, seatingID string) (Snapshot, error) {
    snap, err := s.store.Load(ctx, holderID, seatingID)
    missing := errors.Is(err, apperr.ErrNotFound)
    if err != nil && !missing {
        return Snapshot{}, err
    }
    if missing {
        snap = Snapshot{HolderID: holderID, EventSeatingID: seatingID}
    }

    live, ok, err := s.holds.HolderHold(ctx, holderID, seatingID)
    if err != nil {
        return Snapshot{}, fmt.Errorf("load hold: %w", err)
    }
    seats := snap.Selection().Seats
    switch {
    case ok && len(seats) == 0 && missing:
        return s.rebuild(ctx, holderID, seatingID, live)
    case ok && heldExactly(live, seats):
        exp := live.ExpiresAt
        snap.HoldID, snap.HoldExpiresAt = live.ID, &exp
        items := make([]model.CartLineItem, len(snap.Items))
        copy(items, snap.Items)
        for i := range items {
            if len(items[i].Seats) > 0 {
                e := exp
                items[i].HoldID, items[i].HoldExpiresAt = live.ID, &e
            }
        }
        snap.Items = items
        return snap, nil
    case len(seats) == 0:
        snap.HoldID, snap.HoldExpiresAt = "", nil
        return snap, nil
    }

    // The hold lapsed or was replaced elsewhere; only the quantity lines
    // are still valid.
    kept := snap.Items[:0:0]
    for _, item := range snap.Items {
        if len(item.Seats) == 0 {
            kept = append(kept, item)
        }
    }
    snap.Items = kept
    snap.total()
    snap.HoldID, snap.HoldExpiresAt, snap.Expired = "", nil, true
    return snap, nil
}

func (s *Synchronizer) rebuild(ctx context.Context, holderID, seatingID string, live model.SeatHold) (Snapshot, error) {
    resolver, err := s.bindings.Get(ctx, seatingID)
    if err != nil {
        return Snapshot{}, err
    }
    return s.build(ctx, resolver, holderID, seatingID, live, nil, nil)
}

func heldExactly(h model.SeatHold, seats map[string]string) bool {
    if len(h.Seats) != len(seats) {
        return false
    }
    for _, hs := range h.Seats {
        if _, ok := seats[hs.SeatUID]; !ok {
            return false
        }
    }
    return true
}

func (s *Synchronizer) lock(holderID, seatingID string) *sync.Mutex {
    h := fnv.New32a()
    _, _ = h.Write([]byte(holderID))
    _, _ = h.Write([]byte{0})
    _, _ = h.Write([]byte(seatingID))
    return &s.locks[h.Sum32()%lockStripes]
}

func checkQuantities(resolver *binding.Resolver, quantities map[string]int) error {
    for id, qty := range quantities {
        if qty == 0 {
            continue
        }
        tt, ok := resolver.TicketType(id)
        if !ok {
            return apperr.Invalid("quantities", "unknown ticket type %q", id)
        }
        if tt.HasSeating {
            return apperr.Invalid("quantities", "ticket type %q is sold by seat", id)
        }
        lo, hi := tt.OrderLimits()
        if qty < lo || qty > hi {
            return apperr.Invalid("quantities", "ticket type %q allows %d to %d per order, got %d", id, lo, hi, qty)
        }
        if qty > tt.AvailableQuantity {
            return apperr.Invalid("quantities", "only %d left for ticket type %q", tt.AvailableQuantity, id)
        }
    }
    return nil
}

// uniformUnit returns the shared display price of the seats, or 0 when
// they differ.
func uniformUnit(prices []model.SeatPrice) int64 {
    if len(prices) == 0 {
        return 0
    }
    unit := prices[0].DisplayCents
    for _, p := range prices[1:] {
        if p.DisplayCents != unit {
            return 0
        }
    }
    return unit
}
