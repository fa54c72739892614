package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fotnik/internal/domain"
)

// TokenRepositoryPG implements domain.TokenRepository using PostgreSQL.
type TokenRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTokenRepository constructs a new token repository instance.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepositoryPG {
	return &TokenRepositoryPG{pool: pool}
}

// Balance returns the user's remaining generation tokens. A user without an
// allocation row is domain.ErrNotFound.
func (r *TokenRepositoryPG) Balance(ctx context.Context, userID string) (int, error) {
	row := r.pool.QueryRow(ctx, `SELECT token_balance FROM user_tokens WHERE user_id = $1;`, userID)

	var balance int
	err := row.Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Debit reduces the user's balance, clamping at zero.
func (r *TokenRepositoryPG) Debit(ctx context.Context, userID string, amount int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE user_tokens
SET token_balance = GREATEST(token_balance - $2, 0)
WHERE user_id = $1;
`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.TokenRepository = (*TokenRepositoryPG)(nil)
