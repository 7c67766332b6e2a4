package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopcart/apiserver/types"
)

// OrderEvent is the payload published whenever an order is created or
// its fulfillment status changes. Downstream consumers (notification,
// fulfillment) subscribe out of process.
type OrderEvent struct {
	// Type is "order.created" or "order.status_changed".
	Type string `json:"type"`

	// OrderID identifies the order the event refers to.
	OrderID int `json:"order_id"`

	// UserID identifies the order's owner.
	UserID int `json:"user_id"`

	// Status is the order's status after the event.
	Status types.OrderStatus `json:"status"`

	// OccurredAt is when the event was produced.
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend and serializes order events onto a channel.
type Publisher struct {
	backend Backend
	channel string
}

// NewPublisher constructs a Publisher for the provided backend and channel.
func NewPublisher(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

// PublishOrderEvent sends an order event to the configured channel and
// returns the broker-assigned message id.
func (p *Publisher) PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	attrs := map[string]string{"event_type": event.Type}
	return p.backend.Publish(ctx, p.channel, data, attrs)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}
