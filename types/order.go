package types

import (
	"fmt"
	"time"
)

// OrderStatus is the fulfillment state of an order. Orders progress
// forward only: created -> packed -> shipped -> delivered.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// statusRank orders the lifecycle states for transition checks.
var statusRank = map[OrderStatus]int{
	OrderStatusCreated:   0,
	OrderStatusPacked:    1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether target is the immediate next state after s.
// Skipping states or moving backwards is rejected.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) error {
	from, ok := statusRank[s]
	if !ok {
		return fmt.Errorf("unknown order status %q", s)
	}
	to, ok := statusRank[target]
	if !ok {
		return fmt.Errorf("unknown order status %q", target)
	}
	if to != from+1 {
		return fmt.Errorf("cannot advance order from %q to %q", s, target)
	}
	return nil
}

// Order represents a customer order and its line items.
type Order struct {
	// ID is the unique identifier of the order.
	ID int `json:"id" db:"id"`

	// UserID identifies the user who placed the order.
	UserID int `json:"user_id" db:"user_id"`

	// Status is the current fulfillment state of the order.
	Status OrderStatus `json:"status" db:"status"`

	// Items are the order's line items. Each catalog item appears
	// at most once, with its requested quantity.
	Items []OrderItem `json:"items"`

	// CreatedAt is the timestamp when the order was placed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OrderItem is a single line item within an order.
type OrderItem struct {
	// ID is the unique identifier of the line item.
	ID int `json:"id" db:"id"`

	// OrderID identifies the owning order.
	OrderID int `json:"order_id" db:"order_id"`

	// ItemID identifies the catalog item.
	ItemID int `json:"item_id" db:"item_id"`

	// Quantity is how many units were ordered. Always positive.
	Quantity int `json:"quantity" db:"quantity"`
}
