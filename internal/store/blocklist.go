package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// BlocklistRepository persists revoked token identifiers in Postgres.
// It is the fallback blocklist backend when Redis is not configured.
// Entries carry the token's natural expiry so they can be pruned once
// the token would have died anyway.
type BlocklistRepository struct {
	db *sql.DB
}

func NewBlocklistRepository(db *sql.DB) *BlocklistRepository {
	return &BlocklistRepository{db: db}
}

// Revoke records a token identifier until its natural expiry. Revoking
// an already-revoked jti is a no-op.
func (r *BlocklistRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	const query = `
		INSERT INTO token_blocklist (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, jti, expiresAt); err != nil {
		return err
	}

	// Opportunistic pruning keeps the table bounded without a sweeper.
	const pruneQuery = `DELETE FROM token_blocklist WHERE expires_at < $1`
	_, err := r.db.ExecContext(ctx, pruneQuery, time.Now())
	return err
}

// IsRevoked reports whether a live blocklist entry exists for the jti.
// Entries past their expiry no longer count as revoked.
func (r *BlocklistRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const query = `
		SELECT 1
		FROM token_blocklist
		WHERE jti = $1 AND expires_at >= $2`
	var one int
	err := r.db.QueryRowContext(ctx, query, jti, time.Now()).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
