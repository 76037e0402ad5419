package cart

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/seating-core/internal/apperr"
)

// Store keeps the last confirmed cart of each holder per seating.  Replace
// overwrites the whole snapshot; there is no per-item write.
type Store interface {
    Load(ctx context.Context, holderID, seatingID string) (Snapshot, error)
    Replace(ctx context.Context, snap Snapshot, ttl time.Duration) error
    Delete(ctx context.Context, holderID, seatingID string) error
}

// Key is the storage key of a cart.
func Key(holderID, seatingID string) string {
    return fmt.Sprintf("cart:%s:%s", holderID, seatingID)
}

type memoryEntry struct {
    snap      Snapshot
    expiresAt time.Time
}

// MemoryStore keeps carts in process.  Expired entries are dropped on read.
type MemoryStore struct {
    mu    sync.Mutex
    carts map[string]memoryEntry
    now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
    return &MemoryStore{carts: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, holderID, seatingID string) (Snapshot, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    key := Key(holderID, seatingID)
    e, ok := s.carts[key]
    if !ok {
        return Snapshot{}, apperr.NotFound("cart", key)
    }
    if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
        delete(s.carts, key)
        return Snapshot{}, apperr.NotFound("cart", key)
    }
    return e.snap, nil
}

func (s *MemoryStore) Replace(_ context.Context, snap Snapshot, ttl time.Duration) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    e := memoryEntry{snap: snap}
    if ttl > 0 {
        e.expiresAt = s.now().Add(ttl)
    }
    s.carts[Key(snap.HolderID, snap.EventSeatingID)] = e
    return nil
}

func (s *MemoryStore) Delete(_ context.Context, holderID, seatingID string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.carts, Key(holderID, seatingID))
    return nil
}

// RedisStore keeps carts as JSON under cart:{holder}:{seating}.  Entries
// expire with the ttl the synchronizer passes, which outlives the hold.
type RedisStore struct {
    rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
    return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context, holderID, seatingID string) (Snapshot, error) {
    key := Key(holderID, seatingID)
    bs, err := s.rdb.Get(ctx, key).Bytes()
    if err == redis.Nil {
        return Snapshot{}, apperr.NotFound("cart", key)
    }
    if err != nil {
        return Snapshot{}, fmt.Errorf("load cart: %w", err)
    }
    var snap Snapshot
    if err := json.Unmarshal(bs, &snap); err != nil {
        return Snapshot{}, fmt.Errorf("decode cart %s: %w", key, err)
    }
    return snap, nil
}

func (s *RedisStore) Replace(ctx context.Context, snap Snapshot, ttl time.Duration) error {
    bs, err := json.Marshal(snap)
    if err != nil {
        return err
    }
    // A zero ttl keeps the key without expiry.
    if err := s.rdb.Set(ctx, Key(snap.HolderID, snap.EventSeatingID), bs, ttl).Err(); err != nil {
        return fmt.Errorf("store cart: %w", err)
    }
    return nil
}

func (s *RedisStore) Delete(ctx context.Context, holderID, seatingID string) error {
    return s.rdb.Del(ctx, Key(holderID, seatingID)).Err()
}
