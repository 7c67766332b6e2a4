package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopcart/apiserver/types"
)

// ItemRepository handles persistence for catalog items.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Get(ctx context.Context, id int) (types.Item, error) {
	const query = `
		SELECT id, name, price, description, image_path, created_at, updated_at
		FROM items
		WHERE id = $1`
	var item types.Item
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Price,
		&item.Description,
		&item.ImagePath,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Item{}, ErrNotFound
		}
		return types.Item{}, err
	}
	return item, nil
}

// Create persists a new item. It returns ErrConflict when an item with the
// same name already exists.
func (r *ItemRepository) Create(ctx context.Context, item types.Item) (types.Item, error) {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	const query = `
		INSERT INTO items (name, price, description, image_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		item.Name,
		item.Price,
		item.Description,
		item.ImagePath,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Item{}, ErrConflict
		}
		return types.Item{}, err
	}
	return item, nil
}

func (r *ItemRepository) Update(ctx context.Context, item types.Item) (types.Item, error) {
	item.UpdatedAt = time.Now()

	const query = `
		UPDATE items
		SET name = $1,
			price = $2,
			description = $3,
			image_path = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		item.Name,
		item.Price,
		item.Description,
		item.ImagePath,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.Item{}, ErrConflict
		}
		return types.Item{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Item{}, err
	}
	if affected == 0 {
		return types.Item{}, ErrNotFound
	}
	return item, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM items WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
	return nil
}

func (r *ItemRepository) List(ctx context.Context) ([]types.Item, error) {
	const query = `
		SELECT id, name, price, description, image_path, created_at, updated_at
		FROM items
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Item, 0)
	for rows.Next() {
		var item types.Item
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Price,
			&item.Description,
			&item.ImagePath,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
