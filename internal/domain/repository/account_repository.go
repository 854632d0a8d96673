package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/account-service/internal/domain/entity"
)

// Errors returned (optionally wrapped) by store implementations. The
// application layer translates them into domain errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate")
	ErrVersionConflict = errors.New("version conflict")
)

// SearchQuery is a paginated keyword search; Page is zero-based.
type SearchQuery struct {
	Keyword string
	Page    int
	Size    int
}

// Page is one slice of a paginated result.
type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	TotalItems int64
}

// TotalPages derives the page count from TotalItems and Size.
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalItems + int64(p.Size) - 1) / int64(p.Size))
}

// AccountRepository is the durable account record store. Save, SoftDelete and
// Restore are version-checked: they succeed only when the stored version
// equals a.Version, then bump a.Version. Soft-deleted rows are invisible to
// FindByID, FindByEmail and Search.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindByIDIncludingDeleted(ctx context.Context, id string) (*entity.Account, error)
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a *entity.Account) error
	Save(ctx context.Context, a *entity.Account) error
	SoftDelete(ctx context.Context, a *entity.Account) error
	Restore(ctx context.Context, a *entity.Account) error
	Search(ctx context.Context, q SearchQuery) (Page[entity.Account], error)
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	Roles(ctx context.Context, accountID string) ([]string, error)
	AssignRole(ctx context.Context, accountID, role string) error
}

// ProfileRepository stores profiles keyed by account id. FindByAccountID
// returns soft-deleted profiles too; callers check DeletedAt. Save is
// version-checked like AccountRepository.Save.
type ProfileRepository interface {
	FindByAccountID(ctx context.Context, accountID string) (*entity.Profile, error)
	Create(ctx context.Context, p *entity.Profile) error
	Save(ctx context.Context, p *entity.Profile) error
	SetDeleted(ctx context.Context, accountID string, deletedAt *time.Time) error
}

// VerificationTokenRepository stores email verification tokens. Take deletes
// and returns the row in one statement, so only one caller can win it.
type VerificationTokenRepository interface {
	Create(ctx context.Context, t *entity.VerificationToken) error
	Take(ctx context.Context, token string) (*entity.VerificationToken, error)
	DeleteByAccountID(ctx context.Context, accountID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountByAccountID(ctx context.Context, accountID string) (int, error)
}

// Store groups the repositories and runs units of work.
type Store interface {
	Accounts() AccountRepository
	Profiles() ProfileRepository
	Tokens() VerificationTokenRepository
	// WithTx runs fn in a transaction; an error from fn rolls it back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
