package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopcart/apiserver/types"
)

// OrderRepository handles persistence for orders and their line items.
// Writes that touch both tables run in a single transaction so an order
// can never be observed with a partial set of line items.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Get(ctx context.Context, id int) (types.Order, error) {
	const query = `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders
		WHERE id = $1`
	var order types.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}

	items, err := r.itemsForOrder(ctx, order.ID)
	if err != nil {
		return types.Order{}, err
	}
	order.Items = items
	return order, nil
}

// Create persists an order and its line items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order types.Order) (types.Order, error) {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = types.OrderStatusCreated
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Order{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const orderQuery = `
		INSERT INTO orders (user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		orderQuery,
		order.UserID,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID); err != nil {
		return types.Order{}, err
	}

	items, err := insertOrderItems(ctx, tx, order.ID, order.Items)
	if err != nil {
		return types.Order{}, err
	}
	order.Items = items

	if err := tx.Commit(); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

// ReplaceItems swaps all line items of an order for the given set in one
// transaction. It returns ErrNotFound when the order does not exist.
func (r *OrderRepository) ReplaceItems(ctx context.Context, orderID int, items []types.OrderItem) (types.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Order{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var order types.Order
	order.UpdatedAt = time.Now()

	const touchQuery = `
		UPDATE orders
		SET updated_at = $1
		WHERE id = $2
		RETURNING id, user_id, status, created_at`
	if err := tx.QueryRowContext(ctx, touchQuery, order.UpdatedAt, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}

	const clearQuery = `DELETE FROM order_items WHERE order_id = $1`
	if _, err := tx.ExecContext(ctx, clearQuery, orderID); err != nil {
		return types.Order{}, err
	}

	inserted, err := insertOrderItems(ctx, tx, orderID, items)
	if err != nil {
		return types.Order{}, err
	}
	order.Items = inserted

	if err := tx.Commit(); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

// Delete removes an order and its line items in one transaction.
func (r *OrderRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const clearQuery = `DELETE FROM order_items WHERE order_id = $1`
	if _, err := tx.ExecContext(ctx, clearQuery, id); err != nil {
		return err
	}

	const orderQuery = `DELETE FROM orders WHERE id = $1`
	result, err := tx.ExecContext(ctx, orderQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// AdvanceStatus moves an order from one status to the next. The previous
// status is part of the WHERE clause so concurrent transitions cannot
// skip or repeat a state; a mismatch surfaces as ErrConflict.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, id int, from, to types.OrderStatus) error {
	const query = `
		UPDATE orders
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	const existsQuery = `SELECT 1 FROM orders WHERE id = $1`
	var one int
	if err := r.db.QueryRowContext(ctx, existsQuery, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrConflict
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int) ([]types.Order, error) {
	const query = `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY id`
	return r.listOrders(ctx, query, userID)
}

func (r *OrderRepository) List(ctx context.Context) ([]types.Order, error) {
	const query = `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders
		ORDER BY id`
	return r.listOrders(ctx, query)
}

func (r *OrderRepository) listOrders(ctx context.Context, query string, args ...any) ([]types.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]types.Order, 0)
	for rows.Next() {
		var order types.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.itemsForOrder(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *OrderRepository) itemsForOrder(ctx context.Context, orderID int) ([]types.OrderItem, error) {
	const query = `
		SELECT id, order_id, item_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.OrderItem, 0)
	for rows.Next() {
		var item types.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID int, items []types.OrderItem) ([]types.OrderItem, error) {
	const query = `
		INSERT INTO order_items (order_id, item_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id`
	inserted := make([]types.OrderItem, 0, len(items))
	for _, item := range items {
		item.OrderID = orderID
		if err := tx.QueryRowContext(ctx, query, orderID, item.ItemID, item.Quantity).Scan(&item.ID); err != nil {
			return nil, err
		}
		inserted = append(inserted, item)
	}
	return inserted, nil
}
