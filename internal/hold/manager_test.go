package hold

import (
    "context"
    "fmt"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/inventory"
    "github.com/iliyamo/seating-core/internal/layout"
    "github.com/iliyamo/seating-core/internal/model"
)

type clock struct {
    mu sync.Mutex
    t  time.Time
}

func (c *clock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.t
}

func (c *clock) Advance(d time.Duration) {
    c.mu.Lock()
    c.t = c.t.Add(d)
    c.mu.Unlock()
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev Event) error {
    return m.Called(ctx, ev).Error(0)
}

type fixture struct {
    mgr   *Manager
    inv   *inventory.MemoryStore
    holds *MemoryStore
    clock *clock
}

// es-1: S1 row A (A1..A4), S2 row B (B1, B2 structurally unavailable).
// std sells S1 and S2, vip sells S1 at most two per order, ga has no seats.
func newFixture(t *testing.T, opts ...Option) *fixture {
    t.Helper()
    ctx := context.Background()
    cat := layout.NewMemoryCatalog()
    inv := inventory.NewMemoryStore()
    reg := binding.NewRegistry(cat)
    svc := layout.NewService(cat, inv, reg)
    require.NoError(t, svc.Publish(ctx, &model.EventSeating{
        ID: "es-1",
        Sections: []model.Section{
            {ID: "S1", Rows: []model.Row{{Label: "A", Seats: []model.SeatDef{{UID: "A1"}, {UID: "A2"}, {UID: "A3"}, {UID: "A4"}}}}},
            {ID: "S2", Rows: []model.Row{{Label: "B", Seats: []model.SeatDef{{UID: "B1"}, {UID: "B2", BaseStatus: model.BaseStatusUnavailable}}}}},
        },
    }, []model.TicketType{
        {ID: "std", BasePriceCents: 10000, HasSeating: true, SeatingSections: []model.SectionRef{{SectionID: "S1"}, {SectionID: "S2"}}},
        {ID: "vip", BasePriceCents: 20000, HasSeating: true, MaxPerOrder: 2, SeatingSections: []model.SectionRef{{SectionID: "S1"}}},
        {ID: "ga", BasePriceCents: 3000, AvailableQuantity: 100},
    }))

    c := &clock{t: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)}
    holds := NewMemoryStore()
    opts = append([]Option{WithClock(c.Now)}, opts...)
    return &fixture{
        mgr:   NewManager(inv, holds, svc, reg, opts...),
        inv:   inv,
        holds: holds,
        clock: c,
    }
}

func seats(uids ...string) []model.HeldSeat {
    out := make([]model.HeldSeat, len(uids))
    for i, uid := range uids {
        out[i] = model.HeldSeat{SeatUID: uid}
    }
    return out
}

func (f *fixture) status(t *testing.T, uid string) model.Seat {
    t.Helper()
    s, err := f.inv.Get(context.Background(), "es-1", uid)
    require.NoError(t, err)
    return s
}

func TestHoldAssignsFirstDeclaredTicketType(t *testing.T) {
    f := newFixture(t)
    h, err := f.mgr.Hold(context.Background(), Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "B1")})
    require.NoError(t, err)

    assert.NotEmpty(t, h.ID)
    assert.Equal(t, []model.HeldSeat{{SeatUID: "A1", TicketTypeID: "std"}, {SeatUID: "B1", TicketTypeID: "std"}}, h.Seats)
    assert.Equal(t, f.clock.Now().Add(15*time.Minute), h.ExpiresAt)
    for _, uid := range []string{"A1", "B1"} {
        s := f.status(t, uid)
        assert.Equal(t, model.SeatHeld, s.Status)
        assert.Equal(t, h.ID, s.HoldID)
    }
}

func TestHoldIsAllOrNothing(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    other, err := f.mgr.Hold(ctx, Request{HolderID: "u2", EventSeatingID: "es-1", Seats: seats("A3")})
    require.NoError(t, err)

    _, err = f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2", "A3")})
    require.ErrorIs(t, err, apperr.ErrConflict)
    assert.Equal(t, []string{"A3"}, apperr.Seats(err))

    assert.Equal(t, model.SeatAvailable, f.status(t, "A1").Status)
    assert.Equal(t, model.SeatAvailable, f.status(t, "A2").Status)
    assert.Equal(t, other.ID, f.status(t, "A3").HoldID)

    _, found, err := f.mgr.HolderHold(ctx, "u1", "es-1")
    require.NoError(t, err)
    assert.False(t, found)
}

func TestDisabledSeatIsAConflict(t *testing.T) {
    f := newFixture(t)
    _, err := f.mgr.Hold(context.Background(), Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("B1", "B2")})
    require.ErrorIs(t, err, apperr.ErrConflict)
    assert.Equal(t, []string{"B2"}, apperr.Seats(err))
    assert.Equal(t, model.SeatAvailable, f.status(t, "B1").Status)
}

func TestConcurrentBatchesNeverShareASeat(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)

    orders := [][]string{{"A1", "A2"}, {"A2", "A1"}, {"A2", "A3"}, {"A3", "A1", "A2"}}
    var wins int32
    var wg sync.WaitGroup
    for i := 0; i < 40; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            req := Request{HolderID: fmt.Sprintf("u%d", i), EventSeatingID: "es-1", Seats: seats(orders[i%len(orders)]...)}
            if _, err := f.mgr.Hold(ctx, req); err == nil {
                atomic.AddInt32(&wins, 1)
            } else {
                assert.ErrorIs(t, err, apperr.ErrConflict)
            }
        }(i)
    }
    wg.Wait()

    require.Equal(t, int32(1), wins, "every batch overlaps on A2")
    owner := f.status(t, "A2").HoldID
    h, err := f.holds.Get(ctx, owner)
    require.NoError(t, err)
    for _, uid := range h.SeatUIDs() {
        assert.Equal(t, owner, f.status(t, uid).HoldID)
    }
    for _, uid := range []string{"A1", "A3"} {
        if !h.Owns(uid) {
            assert.Equal(t, model.SeatAvailable, f.status(t, uid).Status, uid)
        }
    }
}

func TestResubmitExtendsSameHold(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    first, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)

    f.clock.Advance(5 * time.Minute)
    again, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A2", "A1")})
    require.NoError(t, err)

    assert.Equal(t, first.ID, again.ID)
    assert.Equal(t, f.clock.Now().Add(15*time.Minute), again.ExpiresAt)
    assert.Equal(t, first.ID, f.status(t, "A1").HoldID)
}

func TestResubmitWithNewTicketTypeKeepsHold(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    first, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1")})
    require.NoError(t, err)

    again, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{{SeatUID: "A1", TicketTypeID: "vip"}}})
    require.NoError(t, err)
    assert.Equal(t, first.ID, again.ID)

    stored, err := f.holds.Get(ctx, first.ID)
    require.NoError(t, err)
    assert.Equal(t, "vip", stored.Seats[0].TicketTypeID)
}

func TestReplacementReleasesSupersededSeats(t *testing.T) {
    ctx := context.Background()
    pub := new(mockPublisher)
    pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev Event) bool {
        return ev.Type == EventHoldReleased && assert.ObjectsAreEqual([]string{"A1"}, ev.SeatUIDs)
    })).Return(nil).Once()
    f := newFixture(t, WithPublisher(pub))

    first, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)
    second, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A2", "A3")})
    require.NoError(t, err)

    assert.NotEqual(t, first.ID, second.ID)
    assert.Equal(t, model.SeatAvailable, f.status(t, "A1").Status)
    assert.Equal(t, second.ID, f.status(t, "A2").HoldID)
    assert.Equal(t, second.ID, f.status(t, "A3").HoldID)

    _, err = f.holds.Get(ctx, first.ID)
    assert.ErrorIs(t, err, apperr.ErrNotFound)
    current, found, err := f.mgr.HolderHold(ctx, "u1", "es-1")
    require.NoError(t, err)
    require.True(t, found)
    assert.Equal(t, second.ID, current.ID)
    pub.AssertExpectations(t)
}

func TestFailedReplacementKeepsPreviousHold(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    mine, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1")})
    require.NoError(t, err)
    _, err = f.mgr.Hold(ctx, Request{HolderID: "u2", EventSeatingID: "es-1", Seats: seats("A3")})
    require.NoError(t, err)

    _, err = f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A3")})
    require.ErrorIs(t, err, apperr.ErrConflict)
    assert.Equal(t, []string{"A3"}, apperr.Seats(err), "A1 is still ours and not reported")

    assert.Equal(t, mine.ID, f.status(t, "A1").HoldID)
    _, err = f.mgr.Validate(ctx, mine.ID, "u1")
    assert.NoError(t, err)
}

func TestExpiredHoldCannotCheckOut(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    h, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)

    f.clock.Advance(16 * time.Minute)

    _, err = f.mgr.Confirm(ctx, h.ID, "u1")
    require.ErrorIs(t, err, apperr.ErrHoldExpired)
    assert.Equal(t, "selection expired, please reselect", err.Error())
    assert.Equal(t, model.SeatAvailable, f.status(t, "A1").Status)

    _, err = f.mgr.Hold(ctx, Request{HolderID: "u2", EventSeatingID: "es-1", Seats: seats("A1")})
    assert.NoError(t, err)
}

func TestLapsedHoldIsReclaimedOnDemand(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    stale, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)

    f.clock.Advance(16 * time.Minute)
    h, err := f.mgr.Hold(ctx, Request{HolderID: "u2", EventSeatingID: "es-1", Seats: seats("A2")})
    require.NoError(t, err)

    assert.Equal(t, h.ID, f.status(t, "A2").HoldID)
    assert.Equal(t, model.SeatAvailable, f.status(t, "A1").Status)
    _, err = f.holds.Get(ctx, stale.ID)
    assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConfirmSellsSeats(t *testing.T) {
    ctx := context.Background()
    pub := new(mockPublisher)
    pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev Event) bool { return ev.Type == EventSeatsSold })).Return(nil).Once()
    f := newFixture(t, WithPublisher(pub))

    h, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)

    _, err = f.mgr.Confirm(ctx, h.ID, "u2")
    require.ErrorIs(t, err, apperr.ErrForbidden)

    sold, err := f.mgr.Confirm(ctx, h.ID, "u1")
    require.NoError(t, err)
    assert.Equal(t, h.ID, sold.ID)
    for _, uid := range []string{"A1", "A2"} {
        s := f.status(t, uid)
        assert.Equal(t, model.SeatSold, s.Status)
        assert.Empty(t, s.HoldID)
    }

    _, err = f.mgr.Confirm(ctx, h.ID, "u1")
    assert.ErrorIs(t, err, apperr.ErrNotFound)
    pub.AssertExpectations(t)
}

func TestReleaseSomeThenAll(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    h, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2", "A3")})
    require.NoError(t, err)

    n, err := f.mgr.Release(ctx, "u1", "es-1", []string{"A2", "B1"})
    require.NoError(t, err)
    assert.Equal(t, 1, n)
    assert.Equal(t, model.SeatAvailable, f.status(t, "A2").Status)

    kept, err := f.mgr.Validate(ctx, h.ID, "u1")
    require.NoError(t, err)
    assert.Equal(t, []string{"A1", "A3"}, kept.SeatUIDs())

    n, err = f.mgr.Release(ctx, "u1", "es-1", nil)
    require.NoError(t, err)
    assert.Equal(t, 2, n)
    _, err = f.mgr.Validate(ctx, h.ID, "u1")
    assert.ErrorIs(t, err, apperr.ErrNotFound)

    n, err = f.mgr.Release(ctx, "u1", "es-1", nil)
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestReleaseHoldByID(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t)
    h, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)

    _, err = f.mgr.ReleaseHold(ctx, h.ID, "u2")
    require.ErrorIs(t, err, apperr.ErrForbidden)

    n, err := f.mgr.ReleaseHold(ctx, h.ID, "")
    require.NoError(t, err)
    assert.Equal(t, 2, n)
    assert.Equal(t, model.SeatAvailable, f.status(t, "A1").Status)
}

func TestExtend(t *testing.T) {
    ctx := context.Background()
    f := newFixture(t, WithMaxTTL(20*time.Minute))
    h, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1")})
    require.NoError(t, err)

    f.clock.Advance(10 * time.Minute)
    ext, err := f.mgr.Extend(ctx, h.ID, "u1", time.Hour)
    require.NoError(t, err)
    assert.Equal(t, f.clock.Now().Add(20*time.Minute), ext.ExpiresAt, "capped at the max lease")

    f.clock.Advance(21 * time.Minute)
    _, err = f.mgr.Extend(ctx, h.ID, "u1", time.Minute)
    require.ErrorIs(t, err, apperr.ErrHoldExpired)
    assert.Equal(t, model.SeatAvailable, f.status(t, "A1").Status)
}

func TestRequestTTL(t *testing.T) {
    f := newFixture(t, WithMaxTTL(30*time.Minute))
    ctx := context.Background()

    h, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1"), TTL: 5 * time.Minute})
    require.NoError(t, err)
    assert.Equal(t, f.clock.Now().Add(5*time.Minute), h.ExpiresAt)

    h, err = f.mgr.Hold(ctx, Request{HolderID: "u2", EventSeatingID: "es-1", Seats: seats("A2"), TTL: 2 * time.Hour})
    require.NoError(t, err)
    assert.Equal(t, f.clock.Now().Add(30*time.Minute), h.ExpiresAt)
}

func TestSweepReleasesLapsedHolds(t *testing.T) {
    ctx := context.Background()
    pub := new(mockPublisher)
    pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev Event) bool { return ev.Type == EventHoldExpired })).Return(nil).Twice()
    f := newFixture(t, WithPublisher(pub))

    _, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2")})
    require.NoError(t, err)
    _, err = f.mgr.Hold(ctx, Request{HolderID: "u2", EventSeatingID: "es-1", Seats: seats("A3"), TTL: time.Minute})
    require.NoError(t, err)
    live, err := f.mgr.Hold(ctx, Request{HolderID: "u3", EventSeatingID: "es-1", Seats: seats("A4"), TTL: time.Hour})
    require.NoError(t, err)

    f.clock.Advance(16 * time.Minute)
    n, err := f.mgr.Sweep(ctx)
    require.NoError(t, err)
    assert.Equal(t, 3, n)

    for _, uid := range []string{"A1", "A2", "A3"} {
        assert.Equal(t, model.SeatAvailable, f.status(t, uid).Status, uid)
    }
    assert.Equal(t, live.ID, f.status(t, "A4").HoldID)

    n, err = f.mgr.Sweep(ctx)
    require.NoError(t, err)
    assert.Zero(t, n)
    pub.AssertExpectations(t)
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
    f := newFixture(t)
    ctx, cancel := context.WithCancel(context.Background())
    _, err := f.mgr.Hold(ctx, Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1")})
    require.NoError(t, err)
    f.clock.Advance(time.Hour)

    done := make(chan struct{})
    go func() {
        NewSweeper(f.mgr, 5*time.Millisecond).Run(ctx)
        close(done)
    }()
    require.Eventually(t, func() bool {
        return f.status(t, "A1").Status == model.SeatAvailable
    }, time.Second, 5*time.Millisecond)

    cancel()
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("sweeper did not stop")
    }
}

func TestHoldValidation(t *testing.T) {
    f := newFixture(t, WithMaxSeats(4))
    ctx := context.Background()

    tests := []struct {
        name  string
        req   Request
        field string
    }{
        {"missing holder", Request{EventSeatingID: "es-1", Seats: seats("A1")}, "holder_id"},
        {"unknown seating", Request{HolderID: "u1", EventSeatingID: "es-9", Seats: seats("A1")}, "event_seating_id"},
        {"no seats", Request{HolderID: "u1", EventSeatingID: "es-1"}, "seat_uids"},
        {"too many seats", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A2", "A3", "A4", "B1")}, "seat_uids"},
        {"duplicate seat", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("A1", "A1")}, "seat_uids"},
        {"unknown seat", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: seats("Z1")}, "seat_uids"},
        {"unknown ticket type", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{{SeatUID: "A1", TicketTypeID: "nope"}}}, "ticket_type_id"},
        {"non-seated ticket type", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{{SeatUID: "A1", TicketTypeID: "ga"}}}, "ticket_type_id"},
        {"section not bound", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{{SeatUID: "B1", TicketTypeID: "vip"}}}, "ticket_type_id"},
        {"over order limit", Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{
            {SeatUID: "A1", TicketTypeID: "vip"}, {SeatUID: "A2", TicketTypeID: "vip"}, {SeatUID: "A3", TicketTypeID: "vip"},
        }}, "seat_uids"},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            _, err := f.mgr.Hold(ctx, tc.req)
            require.ErrorIs(t, err, apperr.ErrValidation)
            assert.Equal(t, tc.field, apperr.Field(err))
        })
    }

    seatsNow, err := f.inv.List(ctx, "es-1")
    require.NoError(t, err)
    for _, s := range seatsNow {
        assert.NotEqual(t, model.SeatHeld, s.Status, "validation never mutates")
    }
}
