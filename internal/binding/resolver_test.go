package binding

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

func sampleTypes() []model.TicketType {
    return []model.TicketType{
        {ID: "vip", HasSeating: true, SeatingSections: []model.SectionRef{{SectionID: "S1"}}},
        {ID: "std", HasSeating: true, SeatingSections: []model.SectionRef{{SectionID: "S1"}, {SectionID: "S2"}}},
        {ID: "ga", HasSeating: false, AvailableQuantity: 100},
    }
}

func TestFirstDeclaredWins(t *testing.T) {
    r, err := New(sampleTypes())
    require.NoError(t, err)

    tt, ok := r.Resolve("S1")
    require.True(t, ok)
    assert.Equal(t, "vip", tt.ID)

    tt, ok = r.Resolve("S2")
    require.True(t, ok)
    assert.Equal(t, "std", tt.ID)

    _, ok = r.Resolve("S9")
    assert.False(t, ok)

    ids := []string{}
    for _, typ := range r.ForSection("S1") {
        ids = append(ids, typ.ID)
    }
    assert.Equal(t, []string{"vip", "std"}, ids)
}

func TestReverseLookup(t *testing.T) {
    r, err := New(sampleTypes())
    require.NoError(t, err)

    assert.Len(t, r.SectionsFor("std"), 2)
    assert.Empty(t, r.SectionsFor("ga"))
    assert.Nil(t, r.SectionsFor("nope"))

    _, ok := r.Binding("S2", "vip")
    assert.False(t, ok)
    _, ok = r.Binding("S2", "std")
    assert.True(t, ok)
}

func TestValidation(t *testing.T) {
    tests := []struct {
        name  string
        types []model.TicketType
    }{
        {"seated without sections", []model.TicketType{{ID: "a", HasSeating: true}}},
        {"unseated with sections", []model.TicketType{{ID: "a", SeatingSections: []model.SectionRef{{SectionID: "S1"}}}}},
        {"duplicate id", []model.TicketType{{ID: "a"}, {ID: "a"}}},
        {"missing id", []model.TicketType{{}}},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            _, err := New(tc.types)
            assert.ErrorIs(t, err, apperr.ErrValidation)
        })
    }
}

type staticSource struct {
    calls int
    types []model.TicketType
}

func (s *staticSource) TicketTypes(context.Context, string) ([]model.TicketType, error) {
    s.calls++
    return s.types, nil
}

func TestRegistryRebuildSwapsIndex(t *testing.T) {
    src := &staticSource{types: sampleTypes()}
    reg := NewRegistry(src)
    ctx := context.Background()

    r1, err := reg.Get(ctx, "es-1")
    require.NoError(t, err)
    _, err = reg.Get(ctx, "es-1")
    require.NoError(t, err)
    assert.Equal(t, 1, src.calls)

    src.types = src.types[1:]
    r2, err := reg.Rebuild(ctx, "es-1")
    require.NoError(t, err)

    old, _ := r1.Resolve("S1")
    cur, _ := r2.Resolve("S1")
    assert.Equal(t, "vip", old.ID, "old resolver is untouched")
    assert.Equal(t, "std", cur.ID)
}
