package cart

import (
    "context"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/seating-core/internal/apperr"
    "github.com/iliyamo/seating-core/internal/model"
)

func TestRedisStore(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    defer rdb.Close()
    store := NewRedisStore(rdb)
    ctx := context.Background()

    _, err := store.Load(ctx, "u1", "es-1")
    require.ErrorIs(t, err, apperr.ErrNotFound)

    exp := time.Date(2026, 3, 1, 19, 15, 0, 0, time.UTC)
    snap := Snapshot{
        HolderID:       "u1",
        EventSeatingID: "es-1",
        HoldID:         "h-1",
        HoldExpiresAt:  &exp,
        Items: []model.CartLineItem{
            {EventSeatingID: "es-1", TicketTypeID: "std", Seats: []string{"A1"}, Quantity: 1, TotalDisplayCents: 10000},
        },
        TotalDisplayCents: 10000,
    }
    require.NoError(t, store.Replace(ctx, snap, 15*time.Minute))
    assert.True(t, mr.Exists("cart:u1:es-1"))
    assert.Equal(t, 15*time.Minute, mr.TTL("cart:u1:es-1"))

    got, err := store.Load(ctx, "u1", "es-1")
    require.NoError(t, err)
    assert.Equal(t, "h-1", got.HoldID)
    assert.Equal(t, []string{"A1"}, got.Items[0].Seats)
    assert.True(t, exp.Equal(*got.HoldExpiresAt))

    mr.FastForward(16 * time.Minute)
    _, err = store.Load(ctx, "u1", "es-1")
    assert.ErrorIs(t, err, apperr.ErrNotFound)

    require.NoError(t, store.Replace(ctx, snap, 0))
    require.NoError(t, store.Delete(ctx, "u1", "es-1"))
    assert.False(t, mr.Exists("cart:u1:es-1"))
}

func TestMemoryStoreExpires(t *testing.T) {
    now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
    store := NewMemoryStore()
    store.now = func() time.Time { return now }
    ctx := context.Background()

    require.NoError(t, store.Replace(ctx, Snapshot{HolderID: "u1", EventSeatingID: "es-1"}, time.Minute))
    _, err := store.Load(ctx, "u1", "es-1")
    require.NoError(t, err)

    now = now.Add(time.Minute)
    _, err = store.Load(ctx, "u1", "es-1")
    assert.ErrorIs(t, err, apperr.ErrNotFound)
}
