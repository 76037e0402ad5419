package hold

import (
    "context"
    "log"
    "time"
)

// Sweeper periodically reclaims lapsed holds.  Reclaim is eventual: a hold
// may outlive its deadline by up to one interval, which is why checkout
// always re-validates.
type Sweeper struct {
    manager  *Manager
    interval time.Duration
}

// NewSweeper returns a sweeper running every interval (30s when unset).
func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
    if interval <= 0 {
        interval = 30 * time.Second
    }
    return &Sweeper{manager: m, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
    log.Printf("hold-sweeper: started (every %s)", s.interval)
    s.sweep(ctx)

    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            log.Println("hold-sweeper: stopped")
            return
        case <-ticker.C:
            s.sweep(ctx)
        }
    }
}

func (s *Sweeper) sweep(ctx context.Context) {
    n, err := s.manager.Sweep(ctx)
    if err != nil {
        log.Printf("hold-sweeper: sweep failed: %v", err)
        return
    }
    if n > 0 {
        log.Printf("hold-sweeper: released %d seats from expired holds", n)
    }
}
