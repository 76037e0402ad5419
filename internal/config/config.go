package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env     string // application environment (e.g. "dev", "prod")
    Port    string // HTTP port to listen on
    Storage string // "memory" or "mysql"

    DBUser string
    DBPass string
    DBHost string
    DBPort string
    DBName string

    JWTSecret    string // secret used to verify and sign access tokens
    AccessTTLMin int    // lifetime of tokens minted by seatctl

    Hold    HoldConfig
    Pricing PricingConfig
    CartTTL time.Duration // lifetime of carts without seats

    AMQPURL string      // RabbitMQ; empty disables event publishing
    Kafka   KafkaConfig // empty Brokers disables the consumers
}

// HoldConfig tunes the hold manager and its sweeper.
type HoldConfig struct {
    TTL           time.Duration
    MaxTTL        time.Duration
    MaxSeats      int
    SweepInterval time.Duration
    SweepBatch    int
}

// PricingConfig is the commission applied when a seating sets none.
type PricingConfig struct {
    CommissionMode string
    CommissionRate float64
}

// KafkaConfig lists the topics the service consumes.
type KafkaConfig struct {
    Brokers         []string
    GroupID         string
    OrderTopic      string
    TicketTypeTopic string
}

// Load reads .env (if present) and the environment.  Database settings are
// only required when Storage is mysql; missing required values stop the
// process.
func Load() Config {
    if err := godotenv.Load(); err == nil {
        log.Println("config: loaded .env")
    }

    cfg := Config{
        Env:          envStr("APP_ENV", "dev"),
        Port:         envStr("APP_PORT", "8080"),
        Storage:      strings.ToLower(envStr("STORAGE", "memory")),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
        Hold: HoldConfig{
            TTL:           envDur("HOLD_TTL", 15*time.Minute),
            MaxTTL:        envDur("HOLD_MAX_TTL", 30*time.Minute),
            MaxSeats:      envInt("HOLD_MAX_SEATS", 10),
            SweepInterval: envDur("HOLD_SWEEP_INTERVAL", 30*time.Second),
            SweepBatch:    envInt("HOLD_SWEEP_BATCH", 500),
        },
        Pricing: PricingConfig{
            CommissionMode: envStr("COMMISSION_MODE", "included"),
            CommissionRate: envFloat("COMMISSION_RATE", 5),
        },
        CartTTL: envDur("CART_TTL", 30*time.Minute),
        AMQPURL: os.Getenv("RABBITMQ_URL"),
        Kafka: KafkaConfig{
            Brokers:         envList("KAFKA_BROKERS"),
            GroupID:         envStr("KAFKA_GROUP_ID", "seating-core"),
            OrderTopic:      envStr("KAFKA_ORDER_TOPIC", "ticketly.order.updates"),
            TicketTypeTopic: envStr("KAFKA_TICKET_TYPE_TOPIC", "ticketly.ticket_type.updates"),
        },
    }
    if cfg.AMQPURL == "" {
        cfg.AMQPURL = os.Getenv("AMQP_URL")
    }

    switch cfg.Storage {
    case "memory":
    case "mysql":
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    default:
        log.Fatalf("invalid STORAGE %q (want memory or mysql)", cfg.Storage)
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch strings.ToLower(v) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
        return n
    }
    return d
}

func envFloat(k string, d float64) float64 {
    if f, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil {
        return f
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
        return dur
    }
    return d
}

// envList splits a comma separated variable, dropping blanks.
func envList(k string) []string {
    var out []string
    for _, p := range strings.Split(os.Getenv(k), ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
