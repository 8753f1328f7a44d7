package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/cache"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/cart"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/catalog"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/config"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/dispatch"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/events"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/httpx"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/inventory"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/player"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/scheduler"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[game-server] postgres: %v", err)
	}
	defer pool.Close()

	var orderCache order.Cache
	if cfg.RedisURL != "" {
		c, err := cache.NewOrders(cfg.RedisURL)
		if err != nil {
			log.Printf("[game-server] redis unavailable, running without cache: %v", err)
		} else {
			orderCache = c
			defer c.Close()
		}
	}

	var orderEvents order.Events
	var dispatchEvents dispatch.Events
	if cfg.AMQPURL != "" {
		pub, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			log.Printf("[game-server] amqp unavailable, running without events: %v", err)
		} else {
			orderEvents = pub
			dispatchEvents = pub
			defer pub.Close()
		}
	}

	players := player.NewPGRepo(pool)
	goods := catalog.NewPGRepo(pool)

	orders := order.NewService(order.NewPGRepo(pool), players, orderCache, orderEvents)
	dispatchRepo := dispatch.NewPGRepo(pool)
	dispatches := dispatch.NewService(dispatchRepo, players, dispatchEvents)
	credits := inventory.NewProcessor(inventory.NewPGRepo(pool), dispatchRepo)

	sched := scheduler.New(orders, dispatches, credits, cfg.ApproveAfter, cfg.ExpireAfter, cfg.TickEvery)
	go sched.Run(ctx)

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())
	registerRoutes(r, &deps{
		carts:      cart.NewRegistry(),
		goods:      goods,
		players:    player.NewService(players),
		orders:     orders,
		dispatches: dispatches,
		inv:        inventory.NewPGRepo(pool),
		sched:      sched,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("[game-server] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[game-server] http: %v", err)
		}
	}()

	<-ctx.Done()
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("[game-server] shutdown: %v", err)
	}
}
