package cli

import (
    "bytes"
    "context"
    "strings"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seating-core/internal/app"
    "github.com/iliyamo/seating-core/internal/config"
    "github.com/iliyamo/seating-core/internal/hold"
    "github.com/iliyamo/seating-core/internal/model"
)

type harness struct {
    app *app.App
    now time.Time
    out *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
    t.Helper()
    h := &harness{now: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC), out: &bytes.Buffer{}}
    a, err := app.New(context.Background(), config.Config{Storage: "memory"}, hold.WithClock(func() time.Time { return h.now }))
    require.NoError(t, err)
    h.app = a

    require.NoError(t, a.Layout.Publish(context.Background(), &model.EventSeating{
        ID: "es-1",
        Sections: []model.Section{
            {ID: "S1", Rows: []model.Row{{Label: "A", Seats: []model.SeatDef{{UID: "A1"}, {UID: "A2"}}}}},
            {ID: "S2", Rows: []model.Row{{Label: "B", Seats: []model.SeatDef{{UID: "B1"}}}}},
        },
    }, []model.TicketType{
        {ID: "std", BasePriceCents: 10000, HasSeating: true, SeatingSections: []model.SectionRef{{SectionID: "S1"}, {SectionID: "S2"}}},
    }))
    return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
    t.Helper()
    h.out.Reset()
    c := &CLI{
        Open:   func(context.Context) (*app.App, error) { return h.app, nil },
        Secret: "cli-secret",
        Out:    h.out,
    }
    root := c.Root()
    root.SetErr(&bytes.Buffer{})
    root.SetArgs(args)
    err := root.ExecuteContext(context.Background())
    return h.out.String(), err
}

func TestSweepCommand(t *testing.T) {
    h := newHarness(t)
    _, err := h.app.Holds.Hold(context.Background(), hold.Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{{SeatUID: "A1"}, {SeatUID: "B1"}}})
    require.NoError(t, err)

    out, err := h.run(t, "sweep")
    require.NoError(t, err)
    assert.Equal(t, "released 0 seats\n", out)

    h.now = h.now.Add(16 * time.Minute)
    out, err = h.run(t, "sweep")
    require.NoError(t, err)
    assert.Equal(t, "released 2 seats\n", out)
}

func TestRepricePreviewDoesNotStore(t *testing.T) {
    h := newHarness(t)
    out, err := h.run(t, "reprice", "preview", "--seating", "es-1", "--scope", "section", "--ref", "S1", "--kind", "percent", "--percent", "10")
    require.NoError(t, err)
    assert.Contains(t, out, "A1")
    assert.Contains(t, out, "110.00")
    assert.NotContains(t, out, "B1")

    d, err := h.app.Pricing.ComputeEffectivePrice(context.Background(), "es-1", "A1")
    require.NoError(t, err)
    assert.EqualValues(t, 10000, d.EffectivePriceCents)
}

func TestRepriceApply(t *testing.T) {
    h := newHarness(t)
    out, err := h.run(t, "reprice", "apply", "--seating", "es-1", "--scope", "seat", "--ref", "B1", "--kind", "set", "--amount", "7500")
    require.NoError(t, err)
    assert.Contains(t, out, "repriced 1 seat prices")

    d, err := h.app.Pricing.ComputeEffectivePrice(context.Background(), "es-1", "B1")
    require.NoError(t, err)
    assert.EqualValues(t, 7500, d.EffectivePriceCents)

    _, err = h.run(t, "reprice", "apply", "--seating", "es-1", "--kind", "bogus")
    assert.Error(t, err)
    _, err = h.run(t, "reprice", "preview")
    assert.Error(t, err, "--seating is required")
}

func TestSeatsCommand(t *testing.T) {
    h := newHarness(t)
    _, err := h.app.Holds.Hold(context.Background(), hold.Request{HolderID: "u1", EventSeatingID: "es-1", Seats: []model.HeldSeat{{SeatUID: "A2"}}})
    require.NoError(t, err)

    out, err := h.run(t, "seats", "--seating", "es-1")
    require.NoError(t, err)
    lines := strings.Split(out, "\n")
    var s1 string
    for _, l := range lines {
        if strings.Contains(l, "S1") {
            s1 = l
        }
    }
    require.NotEmpty(t, s1)
    assert.Regexp(t, `S1\s*\|\s*1\s*\|\s*1\s*\|`, s1)
}

func TestTokenCommand(t *testing.T) {
    h := newHarness(t)
    out, err := h.run(t, "token", "--sub", "svc-checkout", "--role", "SERVICE")
    require.NoError(t, err)

    tok, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (interface{}, error) { return []byte("cli-secret"), nil })
    require.NoError(t, err)
    claims := tok.Claims.(jwt.MapClaims)
    assert.Equal(t, "svc-checkout", claims["sub"])
    assert.Equal(t, "SERVICE", claims["role"])
}

func TestCents(t *testing.T) {
    assert.Equal(t, "0.05", cents(5))
    assert.Equal(t, "120.00", cents(12000))
    assert.Equal(t, "-1.50", cents(-150))
}
