package postgres

import (
	"context"
	"time"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/repository"
)

type TokenRepository struct {
	q       querier
	timeout time.Duration
}

func (r *TokenRepository) Create(ctx context.Context, t *entity.VerificationToken) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.q.Exec(ctx, `
		INSERT INTO verification_tokens (id, token, account_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Token, t.AccountID, t.ExpiresAt, t.CreatedAt)
	return translate(err)
}

// Take removes the token and returns it; a concurrent caller sees ErrNotFound.
func (r *TokenRepository) Take(ctx context.Context, token string) (*entity.VerificationToken, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	t := &entity.VerificationToken{}
	err := r.q.QueryRow(ctx, `
		DELETE FROM verification_tokens
		WHERE token = $1
		RETURNING id, token, account_id, expires_at, created_at
	`, token).Scan(&t.ID, &t.Token, &t.AccountID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (r *TokenRepository) DeleteByAccountID(ctx context.Context, accountID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	tag, err := r.q.Exec(ctx, `DELETE FROM verification_tokens WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	tag, err := r.q.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TokenRepository) CountByAccountID(ctx context.Context, accountID string) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	var n int
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM verification_tokens WHERE account_id = $1`, accountID).Scan(&n)
	return n, translate(err)
}

var _ repository.VerificationTokenRepository = (*TokenRepository)(nil)
