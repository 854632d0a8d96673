package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/repository"
)

const accountColumns = `id, email, credential_hash, first_name, last_name, status, active,
	email_verified, created_at, updated_at, last_login_at, deleted_at, deleted_by, version`

type AccountRepository struct {
	q       querier
	timeout time.Duration
}

func scanAccount(row pgx.Row) (*entity.Account, error) {
	a := &entity.Account{}
	var status string
	if err := row.Scan(&a.ID, &a.Email, &a.CredentialHash, &a.FirstName, &a.LastName, &status, &a.Active,
		&a.EmailVerified, &a.CreatedAt, &a.UpdatedAt, &a.LastLoginAt, &a.DeletedAt, &a.DeletedBy, &a.Version); err != nil {
		return nil, translate(err)
	}
	a.Status = entity.AccountStatus(status)
	return a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return scanAccount(r.q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

func (r *AccountRepository) FindByIDIncludingDeleted(ctx context.Context, id string) (*entity.Account, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return scanAccount(r.q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return scanAccount(r.q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE lower(email) = $1 AND deleted_at IS NULL
	`, entity.NormalizeEmail(email)))
}

// ExistsByEmail also sees soft-deleted rows, matching the unique index.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = $1)`,
		entity.NormalizeEmail(email)).Scan(&exists)
	return exists, translate(err)
}

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	if a.Version == 0 {
		a.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, a.ID, a.Email, a.CredentialHash, a.FirstName, a.LastName, string(a.Status), a.Active,
		a.EmailVerified, a.CreatedAt, a.UpdatedAt, a.LastLoginAt, a.DeletedAt, a.DeletedBy, a.Version)
	return translate(err)
}

// Save writes every mutable column when the stored version still matches.
func (r *AccountRepository) Save(ctx context.Context, a *entity.Account) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	var next int64
	err := r.q.QueryRow(ctx, `
		UPDATE accounts
		SET email = $2, credential_hash = $3, first_name = $4, last_name = $5, status = $6,
		    active = $7, email_verified = $8, updated_at = $9, last_login_at = $10,
		    deleted_at = $11, deleted_by = $12, version = version + 1
		WHERE id = $1 AND version = $13
		RETURNING version
	`, a.ID, a.Email, a.CredentialHash, a.FirstName, a.LastName, string(a.Status),
		a.Active, a.EmailVerified, a.UpdatedAt, a.LastLoginAt,
		a.DeletedAt, a.DeletedBy, a.Version).Scan(&next)
	if err != nil {
		return r.conflictOrMissing(ctx, a.ID, translate(err))
	}
	a.Version = next
	return nil
}

func (r *AccountRepository) SoftDelete(ctx context.Context, a *entity.Account) error {
	if a.DeletedAt == nil {
		return fmt.Errorf("soft delete %s: deleted_at not set", a.ID)
	}
	return r.Save(ctx, a)
}

func (r *AccountRepository) Restore(ctx context.Context, a *entity.Account) error {
	if a.DeletedAt != nil {
		return fmt.Errorf("restore %s: deleted_at still set", a.ID)
	}
	return r.Save(ctx, a)
}

// conflictOrMissing tells a stale version from a missing row after a
// version-checked update matched nothing.
func (r *AccountRepository) conflictOrMissing(ctx context.Context, id string, err error) error {
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	var exists bool
	if qErr := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); qErr != nil {
		return qErr
	}
	if exists {
		return repository.ErrVersionConflict
	}
	return repository.ErrNotFound
}

func (r *AccountRepository) Search(ctx context.Context, q repository.SearchQuery) (repository.Page[entity.Account], error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	page := repository.Page[entity.Account]{Page: q.Page, Size: q.Size}
	pattern := "%" + escapeLike(strings.TrimSpace(q.Keyword)) + "%"
	const filter = `deleted_at IS NULL AND (email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1)`

	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE `+filter, pattern).Scan(&page.TotalItems); err != nil {
		return page, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE `+filter+`
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, pattern, q.Size, q.Page*q.Size)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, *a)
	}
	return page, rows.Err()
}

func (r *AccountRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE deleted_at IS NOT NULL AND deleted_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *AccountRepository) Roles(ctx context.Context, accountID string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	rows, err := r.q.Query(ctx, `SELECT role FROM account_roles WHERE account_id = $1 ORDER BY role`, accountID)
	if err != nil {
		return nil, err
	}
	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *AccountRepository) AssignRole(ctx context.Context, accountID, role string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.q.Exec(ctx, `
		INSERT INTO account_roles (account_id, role)
		VALUES ($1, $2)
		ON CONFLICT (account_id, role) DO NOTHING
	`, accountID, role)
	return translate(err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

var _ repository.AccountRepository = (*AccountRepository)(nil)
