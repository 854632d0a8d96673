package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/account-service/internal/domain/repository"
)

// Store is the pgx-backed repository.Store. A Store returned inside WithTx
// shares the transaction; nested WithTx calls join it.
type Store struct {
	pool    *pgxpool.Pool
	q       querier
	inTx    bool
	timeout time.Duration
}

// NewStore bounds every statement by timeout (zero disables the bound).
func NewStore(pool *pgxpool.Pool, timeout time.Duration) *Store {
	return &Store{pool: pool, q: pool, timeout: timeout}
}

func (s *Store) Accounts() repository.AccountRepository {
	return &AccountRepository{q: s.q, timeout: s.timeout}
}

func (s *Store) Profiles() repository.ProfileRepository {
	return &ProfileRepository{q: s.q, timeout: s.timeout}
}

func (s *Store) Tokens() repository.VerificationTokenRepository {
	return &TokenRepository{q: s.q, timeout: s.timeout}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err = fn(&Store{pool: s.pool, q: tx, inTx: true, timeout: s.timeout}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

var _ repository.Store = (*Store)(nil)
