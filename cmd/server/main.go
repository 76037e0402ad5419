package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/seating-core/internal/app"
	"github.com/iliyamo/seating-core/internal/cart"
	"github.com/iliyamo/seating-core/internal/config"
	"github.com/iliyamo/seating-core/internal/handler"
	"github.com/iliyamo/seating-core/internal/hold"
	"github.com/iliyamo/seating-core/internal/kafka"
	"github.com/iliyamo/seating-core/internal/middleware"
	"github.com/iliyamo/seating-core/internal/queue"
	"github.com/iliyamo/seating-core/internal/router"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Lifecycle events go to RabbitMQ when configured; the audit consumer
	// mirrors them into logs/seating.log.
	var pub hold.Publisher
	if cfg.AMQPURL != "" {
		p := queue.NewPublisher(cfg.AMQPURL)
		defer p.Close()
		pub = p
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL); err != nil {
				log.Printf("rabbitmq: audit consumer stopped: %v", err)
			}
		}()
	}

	a, err := app.New(ctx, cfg, hold.WithPublisher(pub))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	// Redis backs carts, the response cache and the rate limiter.  Without
	// it carts live in process and the other two pass through.
	rdb := config.NewRedisClient()
	var carts cart.Store = cart.NewMemoryStore()
	if rdb != nil {
		defer rdb.Close()
		carts = cart.NewRedisStore(rdb)
		log.Println("redis: connected")
	} else {
		log.Println("redis: unavailable, carts kept in memory")
	}
	cacheCfg := config.LoadCacheConfig()
	a.Layout.OnChange(middleware.NewCacheInvalidator(cacheCfg, rdb))
	cartSync := cart.NewSynchronizer(a.Holds, a.Pricing, a.Bindings, carts, cart.WithCartTTL(cfg.CartTTL))

	go hold.NewSweeper(a.Holds, cfg.Hold.SweepInterval).Run(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		orders := kafka.NewOrderConsumer(kafka.NewBaseConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrderTopic), a.Holds)
		defer orders.Close()
		go orders.StartConsuming(ctx)

		types := kafka.NewTicketTypeConsumer(kafka.NewBaseConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TicketTypeTopic), a.Layout)
		defer types.Close()
		go types.StartConsuming(ctx)
	}

	seating := handler.NewSeatingHandler(a.Layout, a.Inventory, a.Bindings)
	prices := handler.NewPricingHandler(a.Pricing)
	holds := handler.NewHoldHandler(a.Holds)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())
	router.RegisterRoutes(e)
	router.RegisterPublic(e, seating, prices, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e, holds, handler.NewCartHandler(cartSync), cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterOwner(e, seating, prices, cfg.JWTSecret)
	router.RegisterService(e, holds, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, storage=%s)", addr, cfg.Env, cfg.Storage)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdown); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
