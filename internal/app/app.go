// Package app assembles the seating core from configuration.  The HTTP
// server and seatctl share it so both see the same storage.
package app

import (
    "context"
    "database/sql"
    "fmt"
    "log"

    "github.com/iliyamo/seating-core/internal/binding"
    "github.com/iliyamo/seating-core/internal/config"
    "github.com/iliyamo/seating-core/internal/database"
    "github.com/iliyamo/seating-core/internal/hold"
    "github.com/iliyamo/seating-core/internal/inventory"
    "github.com/iliyamo/seating-core/internal/layout"
    "github.com/iliyamo/seating-core/internal/model"
    "github.com/iliyamo/seating-core/internal/pricing"
    "github.com/iliyamo/seating-core/internal/repository"
)

// App holds the wired components.
type App struct {
    DB        *sql.DB // nil for memory storage
    Catalog   layout.Catalog
    Inventory inventory.Store
    HoldStore hold.Store
    Bindings  *binding.Registry
    Layout    *layout.Service
    Holds     *hold.Manager
    Pricing   *pricing.DynamicEngine
}

// New opens storage (migrating MySQL) and builds the services on top of
// it.  Extra hold options, such as a publisher, come after the configured
// ones.
func New(ctx context.Context, cfg config.Config, holdOpts ...hold.Option) (*App, error) {
    a := &App{}
    switch cfg.Storage {
    case "mysql":
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            return nil, fmt.Errorf("open database: %w", err)
        }
        if err := database.Migrate(ctx, db); err != nil {
            _ = db.Close()
            return nil, fmt.Errorf("migrate: %w", err)
        }
        a.DB = db
        a.Catalog = repository.NewCatalogRepo(db)
        a.Inventory = repository.NewSeatRepo(db)
        a.HoldStore = repository.NewSeatHoldRepo(db)
    default:
        a.Catalog = layout.NewMemoryCatalog()
        a.Inventory = inventory.NewMemoryStore()
        a.HoldStore = hold.NewMemoryStore()
    }
    log.Printf("app: storage=%s", cfg.Storage)

    a.Bindings = binding.NewRegistry(a.Catalog)
    a.Layout = layout.NewService(a.Catalog, a.Inventory, a.Bindings)

    opts := []hold.Option{
        hold.WithHoldTTL(cfg.Hold.TTL),
        hold.WithMaxTTL(cfg.Hold.MaxTTL),
        hold.WithMaxSeats(cfg.Hold.MaxSeats),
        hold.WithSweepBatch(cfg.Hold.SweepBatch),
    }
    a.Holds = hold.NewManager(a.Inventory, a.HoldStore, a.Layout, a.Bindings, append(opts, holdOpts...)...)
    a.Pricing = pricing.NewDynamicEngine(a.Catalog, a.Bindings,
        pricing.WithDefaultCommission(model.CommissionMode(cfg.Pricing.CommissionMode), cfg.Pricing.CommissionRate))
    return a, nil
}

// Close releases the database, if any.
func (a *App) Close() error {
    if a.DB == nil {
        return nil
    }
    return a.DB.Close()
}
