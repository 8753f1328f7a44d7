// Package events publishes order and dispatch lifecycle transitions to an
// AMQP topic exchange so out-of-process collaborators (notification feeds,
// the motoboy client) can react. Publishing is best-effort: failures are
// logged, never surfaced to the acting player.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/dispatch"
	"github.com/atumlegal2-debug/virtual-life-sim-00-65-sub001/internal/order"
)

const Exchange = "rpg.orders"

type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Publisher) publish(ctx context.Context, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[events] marshal %s: %v", key, err)
		return
	}
	err = p.ch.PublishWithContext(ctx, Exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		log.Printf("[events] publish %s: %v", key, err)
	}
}

func (p *Publisher) OrderSubmitted(ctx context.Context, o *order.Order) {
	p.publish(ctx, "order.submitted."+o.StoreID, o)
}

func (p *Publisher) OrderResolved(ctx context.Context, o *order.Order) {
	p.publish(ctx, "order."+o.Status+"."+o.StoreID, o)
}

func (p *Publisher) DispatchOpened(ctx context.Context, rec *dispatch.Record) {
	p.publish(ctx, "dispatch.waiting", rec)
}

func (p *Publisher) DispatchChanged(ctx context.Context, rec *dispatch.Record) {
	p.publish(ctx, "dispatch."+rec.MotoboyStatus, rec)
}
