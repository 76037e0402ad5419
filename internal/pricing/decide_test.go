package pricing

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seating-core/internal/model"
)

func cents(v int64) *int64 { return &v }

func TestDecideIncluded(t *testing.T) {
    d := Decide(Input{TicketTypeID: "std", BasePriceCents: 10000, Mode: model.CommissionIncluded, Rate: 5})

    assert.Equal(t, int64(10000), d.EffectivePriceCents)
    assert.Equal(t, int64(10000), d.DisplayPriceCents)
    assert.Equal(t, int64(9524), d.NetToSellerCents)
    assert.Equal(t, int64(476), d.CommissionCents)
    assert.Zero(t, d.FeeCents)
    assert.Nil(t, d.ReferencePriceCents)
    assert.Nil(t, d.DiscountPercent)
}

func TestDecideAddedOnTop(t *testing.T) {
    d := Decide(Input{TicketTypeID: "std", BasePriceCents: 10000, Mode: model.CommissionAddedOnTop, Rate: 5})

    assert.Equal(t, int64(10500), d.EffectivePriceCents)
    assert.Equal(t, int64(10000), d.DisplayPriceCents)
    assert.Equal(t, int64(500), d.FeeCents, "fee is surfaced as its own line")
    assert.Equal(t, int64(10000), d.NetToSellerCents)
}

func TestDecideDefaultsToIncluded(t *testing.T) {
    d := Decide(Input{BasePriceCents: 2000, Rate: 0})
    assert.Equal(t, model.CommissionIncluded, d.CommissionMode)
    assert.Equal(t, int64(2000), d.NetToSellerCents)
    assert.Zero(t, d.CommissionCents)
}

func TestDecideReferencePrice(t *testing.T) {
    tests := []struct {
        name     string
        target   *int64
        original *int64
        wantRef  *int64
        wantPct  int
    }{
        {name: "target wins", target: cents(15000), original: cents(12000), wantRef: cents(15000), wantPct: 33},
        {name: "target below display falls back to original", target: cents(9000), original: cents(12500), wantRef: cents(12500), wantPct: 20},
        {name: "original only", original: cents(20000), wantRef: cents(20000), wantPct: 50},
        {name: "nothing above display", target: cents(10000), original: cents(8000)},
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            d := Decide(Input{BasePriceCents: 10000, Mode: model.CommissionIncluded, Rate: 5, TargetPriceCents: tc.target, OriginalPriceCents: tc.original})
            if tc.wantRef == nil {
                assert.Nil(t, d.ReferencePriceCents)
                assert.Nil(t, d.DiscountPercent)
                return
            }
            require.NotNil(t, d.ReferencePriceCents)
            require.NotNil(t, d.DiscountPercent)
            assert.Equal(t, *tc.wantRef, *d.ReferencePriceCents)
            assert.Equal(t, tc.wantPct, *d.DiscountPercent)
        })
    }
}

func TestDecideIsPure(t *testing.T) {
    in := Input{SeatUID: "A1", TicketTypeID: "std", BasePriceCents: 4599, Mode: model.CommissionAddedOnTop, Rate: 7.5, TargetPriceCents: cents(6000)}
    first := Decide(in)
    second := Decide(in)
    assert.Equal(t, first, second)
    assert.Equal(t, int64(6000), *in.TargetPriceCents, "inputs are not mutated")
}

func TestRuleApply(t *testing.T) {
    tests := []struct {
        rule Rule
        base int64
        want int64
    }{
        {Rule{Kind: RuleSet, AmountCents: 7500}, 10000, 7500},
        {Rule{Kind: RulePercent, Percent: 10}, 10000, 11000},
        {Rule{Kind: RulePercent, Percent: -50, FloorCents: 6000}, 10000, 6000},
        {Rule{Kind: RuleAmount, AmountCents: -2500}, 10000, 7500},
        {Rule{Kind: RuleAmount, AmountCents: -20000}, 10000, 0},
    }
    for _, tc := range tests {
        assert.Equal(t, tc.want, tc.rule.Apply(tc.base), "%+v", tc.rule)
    }
}
