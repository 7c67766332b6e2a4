package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopcart/apiserver/internal/mq"
	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Get(ctx context.Context, id int) (types.Order, error)
	Create(ctx context.Context, order types.Order) (types.Order, error)
	ReplaceItems(ctx context.Context, orderID int, items []types.OrderItem) (types.Order, error)
	Delete(ctx context.Context, id int) error
	AdvanceStatus(ctx context.Context, id int, from, to types.OrderStatus) error
	ListByUser(ctx context.Context, userID int) ([]types.Order, error)
	List(ctx context.Context) ([]types.Order, error)
}

// ItemLookup is the catalog subset needed to validate order contents.
type ItemLookup interface {
	Get(ctx context.Context, id int) (types.Item, error)
}

// OrderEventPublisher publishes order lifecycle events to the broker.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event mq.OrderEvent) (string, error)
}

// OrderService encapsulates order use-cases.
type OrderService struct {
	repo   OrderRepository
	items  ItemLookup
	events OrderEventPublisher
}

// NewOrderService constructs an OrderService. events may be nil when no
// broker is configured.
func NewOrderService(repo OrderRepository, items ItemLookup, events OrderEventPublisher) *OrderService {
	return &OrderService{repo: repo, items: items, events: events}
}

// Place creates an order from a list of item ids. Repeated ids collapse
// into a single line item with a summed quantity; any unknown id aborts
// the whole order with store.ErrNotFound before anything is written.
func (s *OrderService) Place(ctx context.Context, userID int, itemIDs []int) (types.Order, error) {
	lines, err := s.buildLineItems(ctx, itemIDs)
	if err != nil {
		return types.Order{}, err
	}

	order, err := s.repo.Create(ctx, types.Order{
		UserID: userID,
		Status: types.OrderStatusCreated,
		Items:  lines,
	})
	if err != nil {
		return types.Order{}, err
	}

	s.publish(ctx, mq.EventOrderCreated, order)
	return order, nil
}

// Replace swaps all line items of the caller's order for a freshly
// computed set. Orders owned by other users surface as
// store.ErrNotFound so existence is not leaked.
func (s *OrderService) Replace(ctx context.Context, userID, orderID int, itemIDs []int) (types.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}
	if order.UserID != userID {
		return types.Order{}, store.ErrNotFound
	}

	lines, err := s.buildLineItems(ctx, itemIDs)
	if err != nil {
		return types.Order{}, err
	}

	return s.repo.ReplaceItems(ctx, orderID, lines)
}

// Remove deletes the caller's order and its line items.
func (s *OrderService) Remove(ctx context.Context, userID, orderID int) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return store.ErrNotFound
	}
	return s.repo.Delete(ctx, orderID)
}

// Advance moves an order to the target status. Transitions must follow
// created -> packed -> shipped -> delivered exactly one step at a time;
// anything else surfaces as ErrInvalidTransition.
func (s *OrderService) Advance(ctx context.Context, orderID int, target types.OrderStatus) (types.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, err
	}
	if err := order.Status.CanAdvanceTo(target); err != nil {
		return types.Order{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if err := s.repo.AdvanceStatus(ctx, orderID, order.Status, target); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Order{}, fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
		}
		return types.Order{}, err
	}
	order.Status = target

	s.publish(ctx, mq.EventOrderStatusChanged, order)
	return order, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID int) ([]types.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *OrderService) List(ctx context.Context) ([]types.Order, error) {
	return s.repo.List(ctx)
}

// buildLineItems deduplicates the requested item ids, preserving first
// appearance order, and verifies every id against the catalog.
func (s *OrderService) buildLineItems(ctx context.Context, itemIDs []int) ([]types.OrderItem, error) {
	counts := make(map[int]int, len(itemIDs))
	ordered := make([]int, 0, len(itemIDs))
	for _, id := range itemIDs {
		if counts[id] == 0 {
			ordered = append(ordered, id)
		}
		counts[id]++
	}

	lines := make([]types.OrderItem, 0, len(ordered))
	for _, id := range ordered {
		if _, err := s.items.Get(ctx, id); err != nil {
			return nil, err
		}
		lines = append(lines, types.OrderItem{ItemID: id, Quantity: counts[id]})
	}
	return lines, nil
}

// publish sends an order event best effort; broker trouble must not
// fail the request that triggered it.
func (s *OrderService) publish(ctx context.Context, eventType string, order types.Order) {
	if s.events == nil {
		return
	}
	event := mq.OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		slog.Warn("failed to publish order event", "type", eventType, "order_id", order.ID, "error", err)
	}
}
