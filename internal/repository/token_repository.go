package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	q Querier
}

func (r *tokenRepository) SelectBySecret(ctx context.Context, secret string) (domain.Token, error) {
	var token domain.Token
	row := r.q.QueryRow(ctx,
		"SELECT id, user_id, secret, created_at FROM token WHERE secret = $1",
		secret,
	)
	if err := row.Scan(&token.ID, &token.UserID, &token.Secret, &token.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Token{}, ErrNotFound
		}
		return domain.Token{}, fmt.Errorf("failed to select token: %w", err)
	}
	return token, nil
}

func (r *tokenRepository) Insert(ctx context.Context, userID int64, secret string) (domain.Token, error) {
	var token domain.Token
	row := r.q.QueryRow(ctx,
		"INSERT INTO token (user_id, secret) VALUES ($1, $2) RETURNING id, user_id, secret, created_at",
		userID, secret,
	)
	if err := row.Scan(&token.ID, &token.UserID, &token.Secret, &token.CreatedAt); err != nil {
		return domain.Token{}, fmt.Errorf("failed to insert token: %w", err)
	}
	return token, nil
}
