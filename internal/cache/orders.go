// Package cache keeps a read-through Redis projection of orders. The ledger
// stays the sole source of truth: entries are short-lived, invalidated on
// every write, and never written independently of a ledger read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

const ordersTTL = 30 * time.Second

type Orders struct {
	client *redis.Client
}

func NewOrders(redisURL string) (*Orders, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Orders{client: client}, nil
}

func (c *Orders) key(id string) string { return "order:" + id }

func (c *Orders) Get(ctx context.Context, id string) (*order.Order, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var o order.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return &o, true
}

func (c *Orders) Put(ctx context.Context, o *order.Order) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(o.ID), raw, ordersTTL).Err(); err != nil {
		log.Printf("[cache] put order %s: %v", o.ID, err)
	}
}

func (c *Orders) Invalidate(ctx context.Context, id string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		log.Printf("[cache] invalidate order %s: %v", id, err)
	}
}

func (c *Orders) Close() {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Close()
}
