package main

import (
	"context"
	"os"
	"time"

	"github.com/iliyamo/seating-core/internal/app"
	"github.com/iliyamo/seating-core/internal/cli"
	"github.com/iliyamo/seating-core/internal/config"
)

func main() {
	cfg := config.Load()
	c := &cli.CLI{
		Open:   func(ctx context.Context) (*app.App, error) { return app.New(ctx, cfg) },
		Secret: cfg.JWTSecret,
		Out:    os.Stdout,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	err := c.Root().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}
