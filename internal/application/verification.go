package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/repository"
	"github.com/oksasatya/account-service/pkg/helpers"
)

// VerificationTokens issues and consumes single-use email verification
// tokens. At most one live token exists per account.
type VerificationTokens struct {
	store repository.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewVerificationTokens(store repository.Store, ttl time.Duration, now func() time.Time) *VerificationTokens {
	if now == nil {
		now = time.Now
	}
	return &VerificationTokens{store: store, ttl: ttl, now: now}
}

// Issue replaces any token of accountID with a fresh one. It runs inside the
// caller's transaction.
func (m *VerificationTokens) Issue(ctx context.Context, tx repository.Store, accountID string) (*entity.VerificationToken, error) {
	if _, err := tx.Tokens().DeleteByAccountID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("invalidate verification tokens: %w", err)
	}
	secret, err := helpers.GenerateToken(helpers.TokenSize256)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	t := &entity.VerificationToken{
		ID:        uuid.NewString(),
		Token:     secret,
		AccountID: accountID,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := tx.Tokens().Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create verification token: %w", err)
	}
	return t, nil
}

// Invalidate deletes every token of accountID inside the caller's transaction.
func (m *VerificationTokens) Invalidate(ctx context.Context, tx repository.Store, accountID string) error {
	if _, err := tx.Tokens().DeleteByAccountID(ctx, accountID); err != nil {
		return fmt.Errorf("invalidate verification tokens: %w", err)
	}
	return nil
}

// Consume takes token and runs fn with it in the same transaction. An
// expired token stays deleted and yields ErrTokenExpired; an error from fn
// rolls back and restores the token.
func (m *VerificationTokens) Consume(ctx context.Context, token string, fn func(tx repository.Store, t *entity.VerificationToken) error) error {
	if token == "" {
		return ErrTokenNotFound
	}
	expired := false
	err := m.store.WithTx(ctx, func(tx repository.Store) error {
		t, err := tx.Tokens().Take(ctx, token)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("take verification token: %w", err)
		}
		if t.Expired(m.now()) {
			expired = true
			return nil
		}
		return fn(tx, t)
	})
	if err != nil {
		return err
	}
	if expired {
		return ErrTokenExpired
	}
	return nil
}

// SweepExpired deletes every expired token.
func (m *VerificationTokens) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.store.Tokens().DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("sweep verification tokens: %w", err)
	}
	return n, nil
}
