package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("STORAGE", "")

    cfg := Load()
    assert.Equal(t, "memory", cfg.Storage)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, 15*time.Minute, cfg.Hold.TTL)
    assert.Equal(t, 30*time.Minute, cfg.Hold.MaxTTL)
    assert.Equal(t, 10, cfg.Hold.MaxSeats)
    assert.Equal(t, "included", cfg.Pricing.CommissionMode)
    assert.Equal(t, 5.0, cfg.Pricing.CommissionRate)
    assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
    t.Setenv("JWT_SECRET", "s3cret")
    t.Setenv("STORAGE", "MySQL")
    t.Setenv("DB_USER", "app")
    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_PORT", "3306")
    t.Setenv("DB_NAME", "seating")
    t.Setenv("HOLD_TTL", "5m")
    t.Setenv("HOLD_MAX_SEATS", "not-a-number")
    t.Setenv("COMMISSION_MODE", "added_on_top")
    t.Setenv("COMMISSION_RATE", "7.5")
    t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")

    cfg := Load()
    assert.Equal(t, "mysql", cfg.Storage)
    assert.Equal(t, "seating", cfg.DBName)
    assert.Equal(t, 5*time.Minute, cfg.Hold.TTL)
    assert.Equal(t, 10, cfg.Hold.MaxSeats, "bad ints fall back to the default")
    assert.Equal(t, 7.5, cfg.Pricing.CommissionRate)
    assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestRateLimitFloors(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 10*time.Second, cfg.TTL)
}
