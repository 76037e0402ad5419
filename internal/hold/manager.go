// Package hold turns a requested set of seats into either all held or none
// held, and manages the lease of the resulting hold until it is sold,
// released or reclaimed by the sweeper.
package hold

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sort"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/inventory"
    "github.com/iliyamo/seating-core/internal/model"
)

const (
    defaultHoldTTL    = 15 * time.Minute
    defaultMaxSeats   = 10
    defaultSweepBatch = 500
)

// Request is one hold batch.  A seat with an empty TicketTypeID is assigned
// the first ticket type declared for its section.
type Request struct {
    HolderID       string
    EventSeatingID string
    Seats          []model.HeldSeat
    TTL            time.Duration
}

// Layout looks up published seatings.
type Layout interface {
    Seating(ctx context.Context, id string) (*model.EventSeating, error)
}

// Bindings resolves the ticket types of a seating.
type Bindings interface {
    Get(ctx context.Context, seatingID string) (*binding.Resolver, error)
}

// Manager coordinates seat inventory and hold records.  It never takes a
// lock spanning more than one seat: batches are made atomic by per-seat
// compare-and-set plus rollback.
type Manager struct {
    inv      inventory.Store
    holds    Store
    layout   Layout
    bindings Bindings
    pub      Publisher
    now      func() time.Time

    defaultTTL time.Duration
    maxTTL     time.Duration
    maxSeats   int
    sweepBatch int
}

// Option configures a Manager.
type Option func(*Manager)

// WithHoldTTL overrides the default lease used when neither the request nor
// the seating sets one.
func WithHoldTTL(d time.Duration) Option {
    return func(m *Manager) {
        if d > 0 {
            m.defaultTTL = d
        }
    }
}

// WithMaxTTL caps requested and extended leases.
func WithMaxTTL(d time.Duration) Option {
    return func(m *Manager) {
        if d > 0 {
            m.maxTTL = d
        }
    }
}

// WithMaxSeats caps the number of seats in one hold.
func WithMaxSeats(n int) Option {
    return func(m *Manager) {
        if n > 0 {
            m.maxSeats = n
        }
    }
}

// WithSweepBatch caps how many holds one sweep pass reclaims.
func WithSweepBatch(n int) Option {
    return func(m *Manager) {
        if n > 0 {
            m.sweepBatch = n
        }
    }
}

// WithPublisher sets where lifecycle events go.
func WithPublisher(p Publisher) Option {
    return func(m *Manager) {
        if p != nil {
            m.pub = p
        }
    }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
    return func(m *Manager) { m.now = now }
}

// NewManager wires a Manager.
func NewManager(inv inventory.Store, holds Store, layout Layout, bindings Bindings, opts ...Option) *Manager {
    m := &Manager{
        inv:        inv,
        holds:      holds,
        layout:     layout,
        bindings:   bindings,
        pub:        nopPublisher{},
        now:        time.Now,
        defaultTTL: defaultHoldTTL,
        maxSeats:   defaultMaxSeats,
        sweepBatch: defaultSweepBatch,
    }
    for _, opt := range opts {
        opt(m)
    }
    return m
}

// Hold acquires every requested seat for the holder or none of them.
//
// A holder has at most one hold per seating.  Re-submitting the seat set of
// the live hold extends it under the same id.  Any other set replaces it:
// seats in both sets carry over, seats only in the old set are released.
func (m *Manager) Hold(ctx context.Context, req Request) (model.SeatHold, error) {
    if req.HolderID == "" {
        return model.SeatHold{}, apperr.Invalid("holder_id", "holder is required")
    }
    seating, resolver, err := m.seating(ctx, req.EventSeatingID)
    if err != nil {
        return model.SeatHold{}, err
    }
    seats, err := m.resolveSeats(ctx, seating.ID, resolver, req.Seats)
    if err != nil {
        return model.SeatHold{}, err
    }
    now := m.now().UTC()
    ttl := m.ttlFor(seating, req.TTL)

    m.reclaimLapsed(ctx, seating.ID, seats, now)

    prev, hasPrev, err := m.liveHold(ctx, req.HolderID, seating.ID, now)
    if err != nil {
        return model.SeatHold{}, err
    }
    if hasPrev && sameSeats(prev.Seats, seats) {
        h, err := m.holds.Touch(ctx, prev.ID, now, now.Add(ttl))
        switch {
        case err == nil:
            if !sameTicketTypes(h.Seats, seats) {
                h.Seats = seats
                if err := m.holds.Save(ctx, h); err != nil {
                    return model.SeatHold{}, fmt.Errorf("save hold: %w", err)
                }
            }
            return h, nil
        case errors.Is(err, apperr.ErrHoldExpired), errors.Is(err, apperr.ErrNotFound):
            hasPrev = false // lost it in between, acquire from scratch
        default:
            return model.SeatHold{}, fmt.Errorf("extend hold: %w", err)
        }
    }

    id := uuid.NewString()
    var prevID string
    if hasPrev {
        prevID = prev.ID
    }
    acquired := make([]acquiredSeat, 0, len(seats))
    for _, uid := range sortedUIDs(seats) {
        t := inventory.Transition{From: model.SeatAvailable, To: model.SeatHeld, NewOwner: id}
        carried := hasPrev && prev.Owns(uid)
        if carried {
            t = inventory.Transition{From: model.SeatHeld, To: model.SeatHeld, Owner: prevID, NewOwner: id}
        }
        ok, err := m.inv.CompareAndSet(ctx, seating.ID, uid, t)
        if err != nil {
            m.rollback(ctx, seating.ID, id, prevID, acquired)
            return model.SeatHold{}, fmt.Errorf("hold seat %s: %w", uid, err)
        }
        if !ok {
            m.rollback(ctx, seating.ID, id, prevID, acquired)
            return model.SeatHold{}, m.conflict(ctx, seating.ID, uid, seats, prevID)
        }
        acquired = append(acquired, acquiredSeat{uid: uid, carried: carried})
    }

    h := model.SeatHold{
        ID:             id,
        EventSeatingID: seating.ID,
        HolderID:       req.HolderID,
        Seats:          seats,
        HeldAt:         now,
        ExpiresAt:      now.Add(ttl),
    }
    if err := m.holds.Save(ctx, h); err != nil {
        m.rollback(ctx, seating.ID, id, prevID, acquired)
        return model.SeatHold{}, fmt.Errorf("save hold: %w", err)
    }
    if hasPrev {
        m.supersede(ctx, prev, h)
    }
    return h, nil
}

// Release gives back some or all seats of the holder's hold on a seating.
// Seats the holder does not own are ignored.
func (m *Manager) Release(ctx context.Context, holderID, seatingID string, seatUIDs []string) (int, error) {
    h, err := m.holds.FindByHolder(ctx, holderID, seatingID)
    if errors.Is(err, apperr.ErrNotFound) {
        return 0, nil
    }
    if err != nil {
        return 0, err
    }
    if h.Expired(m.now()) {
        m.expire(ctx, h.ID)
        return 0, nil
    }

    var keep []model.HeldSeat
    var drop []string
    want := make(map[string]bool, len(seatUIDs))
    for _, uid := range seatUIDs {
        want[uid] = true
    }
    for _, s := range h.Seats {
        if len(want) == 0 || want[s.SeatUID] {
            drop = append(drop, s.SeatUID)
        } else {
            keep = append(keep, s)
        }
    }
    if len(drop) == 0 {
        return 0, nil
    }

    taken, err := m.holds.Take(ctx, h.ID)
    if errors.Is(err, apperr.ErrNotFound) {
        return 0, nil
    }
    if err != nil {
        return 0, err
    }
    n := m.releaseSeats(ctx, taken, drop)
    if len(keep) > 0 {
        taken.Seats = keep
        if err := m.holds.Save(ctx, taken); err != nil {
            return n, fmt.Errorf("save hold: %w", err)
        }
    }
    m.publish(ctx, EventHoldReleased, taken, drop)
    return n, nil
}

// ReleaseHold releases a whole hold by id, for the checkout service on
// payment failure or abandonment.  An empty holderID skips the owner check.
func (m *Manager) ReleaseHold(ctx context.Context, holdID, holderID string) (int, error) {
    h, err := m.owned(ctx, holdID, holderID)
    if err != nil {
        return 0, err
    }
    taken, err := m.holds.Take(ctx, h.ID)
    if err != nil {
        return 0, err
    }
    n := m.releaseSeats(ctx, taken, taken.SeatUIDs())
    m.publish(ctx, EventHoldReleased, taken, taken.SeatUIDs())
    return n, nil
}

// Validate returns the hold if it is still live.  A lapsed hold is reclaimed
// on the spot and reported as apperr.ErrHoldExpired.
func (m *Manager) Validate(ctx context.Context, holdID, holderID string) (model.SeatHold, error) {
    h, err := m.owned(ctx, holdID, holderID)
    if err != nil {
        return model.SeatHold{}, err
    }
    if h.Expired(m.now()) {
        m.expire(ctx, h.ID)
        return model.SeatHold{}, apperr.ErrHoldExpired
    }
    return h, nil
}

// Extend pushes the deadline of a live hold to now+d, capped by the maximum
// lease.  Checkout extends holds to its own order expiry.
func (m *Manager) Extend(ctx context.Context, holdID, holderID string, d time.Duration) (model.SeatHold, error) {
    if _, err := m.owned(ctx, holdID, holderID); err != nil {
        return model.SeatHold{}, err
    }
    if d <= 0 {
        d = m.defaultTTL
    }
    if m.maxTTL > 0 && d > m.maxTTL {
        d = m.maxTTL
    }
    now := m.now().UTC()
    h, err := m.holds.Touch(ctx, holdID, now, now.Add(d))
    if errors.Is(err, apperr.ErrHoldExpired) {
        m.expire(ctx, holdID)
    }
    return h, err
}

// Confirm converts a live hold into a sale.  The hold is re-validated
// first; a lapsed hold fails with apperr.ErrHoldExpired and its seats are
// never sold.
func (m *Manager) Confirm(ctx context.Context, holdID, holderID string) (model.SeatHold, error) {
    h, err := m.owned(ctx, holdID, holderID)
    if err != nil {
        return model.SeatHold{}, err
    }
    if h.Expired(m.now()) {
        m.expire(ctx, h.ID)
        return model.SeatHold{}, apperr.ErrHoldExpired
    }
    taken, err := m.holds.Take(ctx, h.ID)
    if errors.Is(err, apperr.ErrNotFound) {
        return model.SeatHold{}, apperr.ErrHoldExpired // sweeper or release got there first
    }
    if err != nil {
        return model.SeatHold{}, err
    }
    if taken.Expired(m.now()) {
        m.releaseSeats(ctx, taken, taken.SeatUIDs())
        m.publish(ctx, EventHoldExpired, taken, taken.SeatUIDs())
        return model.SeatHold{}, apperr.ErrHoldExpired
    }

    var failed []string
    for _, uid := range taken.SeatUIDs() {
        ok, err := m.inv.CompareAndSet(ctx, taken.EventSeatingID, uid,
            inventory.Transition{From: model.SeatHeld, To: model.SeatSold, Owner: taken.ID})
        if err != nil || !ok {
            log.Printf("hold: confirm %s: seat %s not sold (err=%v)", taken.ID, uid, err)
            failed = append(failed, uid)
        }
    }
    if len(failed) > 0 {
        return taken, fmt.Errorf("confirm hold %s: %w", taken.ID, apperr.Conflict(failed[0], "not held by hold", failed...))
    }
    m.publish(ctx, EventSeatsSold, taken, taken.SeatUIDs())
    return taken, nil
}

// Sweep reclaims lapsed holds and returns how many seats went back to
// available.  It is best effort: a hold whose seats were already moved by
// someone else is simply dropped.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
    expired, err := m.holds.TakeExpired(ctx, m.now().UTC(), m.sweepBatch)
    if err != nil {
        return 0, fmt.Errorf("take expired holds: %w", err)
    }
    n := 0
    for _, h := range expired {
        n += m.releaseSeats(ctx, h, h.SeatUIDs())
        m.publish(ctx, EventHoldExpired, h, h.SeatUIDs())
    }
    return n, nil
}

// HolderHold returns the live hold of a holder on a seating.
func (m *Manager) HolderHold(ctx context.Context, holderID, seatingID string) (model.SeatHold, bool, error) {
    return m.liveHold(ctx, holderID, seatingID, m.now().UTC())
}

type acquiredSeat struct {
    uid     string
    carried bool
}

func (m *Manager) seating(ctx context.Context, seatingID string) (*model.EventSeating, *binding.Resolver, error) {
    if seatingID == "" {
        return nil, nil, apperr.Invalid("event_seating_id", "seating is required")
    }
    seating, err := m.layout.Seating(ctx, seatingID)
    if errors.Is(err, apperr.ErrNotFound) {
        return nil, nil, apperr.Invalid("event_seating_id", "unknown seating %q", seatingID)
    }
    if err != nil {
        return nil, nil, err
    }
    resolver, err := m.bindings.Get(ctx, seatingID)
    if err != nil {
        return nil, nil, err
    }
    return seating, resolver, nil
}

// resolveSeats validates the batch before anything is mutated and fills in
// auto-assigned ticket types.
func (m *Manager) resolveSeats(ctx context.Context, seatingID string, resolver *binding.Resolver, req []model.HeldSeat) ([]model.HeldSeat, error) {
    if len(req) == 0 {
        return nil, apperr.Invalid("seat_uids", "at least one seat is required")
    }
    if m.maxSeats > 0 && len(req) > m.maxSeats {
        return nil, apperr.Invalid("seat_uids", "at most %d seats per hold", m.maxSeats)
    }
    seen := make(map[string]bool, len(req))
    counts := make(map[string]int)
    out := make([]model.HeldSeat, 0, len(req))
    for _, s := range req {
        if s.SeatUID == "" {
            return nil, apperr.Invalid("seat_uids", "empty seat uid")
        }
        if seen[s.SeatUID] {
            return nil, apperr.Invalid("seat_uids", "seat %q requested twice", s.SeatUID)
        }
        seen[s.SeatUID] = true

        seat, err := m.inv.Get(ctx, seatingID, s.SeatUID)
        if errors.Is(err, apperr.ErrNotFound) {
            return nil, apperr.Invalid("seat_uids", "unknown seat %q", s.SeatUID)
        }
        if err != nil {
            return nil, err
        }
        ttID := s.TicketTypeID
        if ttID == "" {
            tt, ok := resolver.Resolve(seat.SectionID)
            if !ok {
                return nil, apperr.Invalid("ticket_type_id", "no ticket type sells section %q", seat.SectionID)
            }
            ttID = tt.ID
        }
        tt, ok := resolver.TicketType(ttID)
        if !ok {
            return nil, apperr.Invalid("ticket_type_id", "unknown ticket type %q", ttID)
        }
        if !tt.HasSeating {
            return nil, apperr.Invalid("ticket_type_id", "ticket type %q is sold without seats", tt.ID)
        }
        if _, ok := resolver.Binding(seat.SectionID, tt.ID); !ok {
            return nil, apperr.Invalid("ticket_type_id", "ticket type %q is not sold in section %q", tt.ID, seat.SectionID)
        }
        counts[tt.ID]++
        out = append(out, model.HeldSeat{SeatUID: s.SeatUID, TicketTypeID: tt.ID})
    }
    for id, n := range counts {
        tt, _ := resolver.TicketType(id)
        lo, hi := tt.OrderLimits()
        if n < lo || n > hi {
            return nil, apperr.Invalid("seat_uids", "ticket type %q allows %d to %d seats per order, got %d", id, lo, hi, n)
        }
    }
    return out, nil
}

func (m *Manager) ttlFor(seating *model.EventSeating, requested time.Duration) time.Duration {
    ttl := m.defaultTTL
    if seating.HoldTTL > 0 {
        ttl = seating.HoldTTL
    }
    if requested > 0 {
        ttl = requested
    }
    if m.maxTTL > 0 && ttl > m.maxTTL {
        ttl = m.maxTTL
    }
    return ttl
}

// reclaimLapsed expires holds that still own requested seats after their
// deadline, so a buyer does not have to wait for the sweeper.
func (m *Manager) reclaimLapsed(ctx context.Context, seatingID string, seats []model.HeldSeat, now time.Time) {
    checked := make(map[string]bool)
    for _, s := range seats {
        seat, err := m.inv.Get(ctx, seatingID, s.SeatUID)
        if err != nil || seat.Status != model.SeatHeld || seat.HoldID == "" || checked[seat.HoldID] {
            continue
        }
        checked[seat.HoldID] = true
        h, err := m.holds.Get(ctx, seat.HoldID)
        if err != nil {
            continue // hold being created right now; treat as live
        }
        if h.Expired(now) {
            m.expire(ctx, h.ID)
        }
    }
}

func (m *Manager) liveHold(ctx context.Context, holderID, seatingID string, now time.Time) (model.SeatHold, bool, error) {
    h, err := m.holds.FindByHolder(ctx, holderID, seatingID)
    if errors.Is(err, apperr.ErrNotFound) {
        return model.SeatHold{}, false, nil
    }
    if err != nil {
        return model.SeatHold{}, false, err
    }
    if h.Expired(now) {
        m.expire(ctx, h.ID)
        return model.SeatHold{}, false, nil
    }
    return h, true, nil
}

func (m *Manager) owned(ctx context.Context, holdID, holderID string) (model.SeatHold, error) {
    h, err := m.holds.Get(ctx, holdID)
    if err != nil {
        return model.SeatHold{}, err
    }
    if holderID != "" && h.HolderID != holderID {
        return model.SeatHold{}, apperr.ErrForbidden
    }
    return h, nil
}

// expire claims a lapsed hold and frees its seats.  Losing the claim means
// confirm, release or the sweeper already handled it.
func (m *Manager) expire(ctx context.Context, holdID string) {
    h, err := m.holds.Take(ctx, holdID)
    if err != nil {
        return
    }
    m.releaseSeats(ctx, h, h.SeatUIDs())
    m.publish(ctx, EventHoldExpired, h, h.SeatUIDs())
}

// supersede drops the previous hold after a replacement took over.  Seats
// carried into the new hold already changed owner, so only the rest move.
func (m *Manager) supersede(ctx context.Context, prev, next model.SeatHold) {
    taken, err := m.holds.Take(ctx, prev.ID)
    if err != nil {
        taken = prev
    }
    var dropped []string
    for _, uid := range taken.SeatUIDs() {
        if !next.Owns(uid) {
            dropped = append(dropped, uid)
        }
    }
    if len(dropped) == 0 {
        return
    }
    m.releaseSeats(ctx, taken, dropped)
    m.publish(ctx, EventHoldReleased, taken, dropped)
}

func (m *Manager) releaseSeats(ctx context.Context, h model.SeatHold, uids []string) int {
    ctx = context.WithoutCancel(ctx)
    n := 0
    for _, uid := range uids {
        ok, err := m.inv.CompareAndSet(ctx, h.EventSeatingID, uid,
            inventory.Transition{From: model.SeatHeld, To: model.SeatAvailable, Owner: h.ID})
        if err != nil {
            log.Printf("hold: release seat %s of %s: %v", uid, h.ID, err)
            continue
        }
        if ok {
            n++
        }
    }
    return n
}

// rollback undoes the CAS calls of a failed batch in reverse order.  Carried
// seats go back to the previous hold, the rest back to available.
func (m *Manager) rollback(ctx context.Context, seatingID, id, prevID string, acquired []acquiredSeat) {
    ctx = context.WithoutCancel(ctx)
    for i := len(acquired) - 1; i >= 0; i-- {
        a := acquired[i]
        t := inventory.Transition{From: model.SeatHeld, To: model.SeatAvailable, Owner: id}
        if a.carried {
            t = inventory.Transition{From: model.SeatHeld, To: model.SeatHeld, Owner: id, NewOwner: prevID}
        }
        if ok, err := m.inv.CompareAndSet(ctx, seatingID, a.uid, t); err != nil || !ok {
            log.Printf("hold: rollback seat %s of %s failed (ok=%v err=%v)", a.uid, id, ok, err)
        }
    }
}

// conflict builds the error for a rejected batch: the first blocking seat
// plus every requested seat that is currently not available to the holder.
func (m *Manager) conflict(ctx context.Context, seatingID, first string, seats []model.HeldSeat, prevID string) error {
    status := ""
    var unavailable []string
    for _, s := range seats {
        seat, err := m.inv.Get(ctx, seatingID, s.SeatUID)
        if err != nil {
            continue
        }
        if s.SeatUID == first {
            status = string(seat.Status)
        }
        if seat.Status == model.SeatAvailable || (seat.Status == model.SeatHeld && prevID != "" && seat.HoldID == prevID) {
            continue
        }
        unavailable = append(unavailable, s.SeatUID)
    }
    return apperr.Conflict(first, status, unavailable...)
}

func (m *Manager) publish(ctx context.Context, typ EventType, h model.SeatHold, uids []string) {
    ev := Event{Type: typ, HoldID: h.ID, HolderID: h.HolderID, EventSeatingID: h.EventSeatingID, SeatUIDs: uids, At: m.now().UTC()}
    if err := m.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
        log.Printf("hold: publish %s for %s failed: %v", typ, h.ID, err)
    }
}

func sortedUIDs(seats []model.HeldSeat) []string {
    out := make([]string, len(seats))
    for i, s := range seats {
        out[i] = s.SeatUID
    }
    sort.Strings(out)
    return out
}

func sameSeats(a, b []model.HeldSeat) bool {
    if len(a) != len(b) {
        return false
    }
    set := make(map[string]bool, len(a))
    for _, s := range a {
        set[s.SeatUID] = true
    }
    for _, s := range b {
        if !set[s.SeatUID] {
            return false
        }
    }
    return true
}

func sameTicketTypes(a, b []model.HeldSeat) bool {
    types := make(map[string]string, len(a))
    for _, s := range a {
        types[s.SeatUID] = s.TicketTypeID
    }
    for _, s := range b {
        if types[s.SeatUID] != s.TicketTypeID {
            return false
        }
    }
    return len(a) == len(b)
}
