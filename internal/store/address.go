package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopcart/apiserver/types"
)

// AddressRepository handles persistence for addresses.
type AddressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

func (r *AddressRepository) GetByUserID(ctx context.Context, userID int) (types.Address, error) {
	const query = `
		SELECT id, user_id, state, city, street, address_detail, created_at, updated_at
		FROM addresses
		WHERE user_id = $1`
	var address types.Address
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&address.ID,
		&address.UserID,
		&address.State,
		&address.City,
		&address.Street,
		&address.AddressDetail,
		&address.CreatedAt,
		&address.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Address{}, ErrNotFound
		}
		return types.Address{}, err
	}
	return address, nil
}

// Create persists a user's address. It returns ErrConflict when the user
// already has one; one address per user is enforced by a unique index.
func (r *AddressRepository) Create(ctx context.Context, address types.Address) (types.Address, error) {
	now := time.Now()
	address.CreatedAt = now
	address.UpdatedAt = now

	const query = `
		INSERT INTO addresses (user_id, state, city, street, address_detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		address.UserID,
		address.State,
		address.City,
		address.Street,
		address.AddressDetail,
		address.CreatedAt,
		address.UpdatedAt,
	).Scan(&address.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Address{}, ErrConflict
		}
		return types.Address{}, err
	}
	return address, nil
}

func (r *AddressRepository) Update(ctx context.Context, address types.Address) (types.Address, error) {
	address.UpdatedAt = time.Now()

	const query = `
		UPDATE addresses
		SET state = $1,
			city = $2,
			street = $3,
			address_detail = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		address.State,
		address.City,
		address.Street,
		address.AddressDetail,
		address.UpdatedAt,
		address.ID,
	)
	if err != nil {
		return types.Address{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Address{}, err
	}
	if affected == 0 {
		return types.Address{}, ErrNotFound
	}
	return address, nil
}

func (r *AddressRepository) List(ctx context.Context) ([]types.Address, error) {
	const query = `
		SELECT id, user_id, state, city, street, address_detail, created_at, updated_at
		FROM addresses
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := make([]types.Address, 0)
	for rows.Next() {
		var address types.Address
		if err := rows.Scan(
			&address.ID,
			&address.UserID,
			&address.State,
			&address.City,
			&address.Street,
			&address.AddressDetail,
			&address.CreatedAt,
			&address.UpdatedAt,
		); err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}
