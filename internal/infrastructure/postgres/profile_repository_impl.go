package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/repository"
)

const profileColumns = `account_id, avatar_url, bio, date_of_birth, gender, phone, address, city,
	country, locale, email_notifications, push_notifications, created_at, updated_at, deleted_at, version`

type ProfileRepository struct {
	q       querier
	timeout time.Duration
}

func scanProfile(row pgx.Row) (*entity.Profile, error) {
	p := &entity.Profile{}
	var gender *string
	if err := row.Scan(&p.AccountID, &p.AvatarURL, &p.Bio, &p.DateOfBirth, &gender, &p.Phone, &p.Address,
		&p.City, &p.Country, &p.Locale, &p.EmailNotifications, &p.PushNotifications,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt, &p.Version); err != nil {
		return nil, translate(err)
	}
	if gender != nil {
		g := entity.Gender(*gender)
		p.Gender = &g
	}
	return p, nil
}

func genderArg(g *entity.Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}

func (r *ProfileRepository) FindByAccountID(ctx context.Context, accountID string) (*entity.Profile, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return scanProfile(r.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE account_id = $1`, accountID))
}

func (r *ProfileRepository) Create(ctx context.Context, p *entity.Profile) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	if p.Version == 0 {
		p.Version = 1
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, p.AccountID, p.AvatarURL, p.Bio, p.DateOfBirth, genderArg(p.Gender), p.Phone, p.Address, p.City,
		p.Country, p.Locale, p.EmailNotifications, p.PushNotifications, p.CreatedAt, p.UpdatedAt, p.DeletedAt, p.Version)
	return translate(err)
}

func (r *ProfileRepository) Save(ctx context.Context, p *entity.Profile) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	var next int64
	err := r.q.QueryRow(ctx, `
		UPDATE profiles
		SET avatar_url = $2, bio = $3, date_of_birth = $4, gender = $5, phone = $6, address = $7,
		    city = $8, country = $9, locale = $10, email_notifications = $11, push_notifications = $12,
		    updated_at = $13, deleted_at = $14, version = version + 1
		WHERE account_id = $1 AND version = $15
		RETURNING version
	`, p.AccountID, p.AvatarURL, p.Bio, p.DateOfBirth, genderArg(p.Gender), p.Phone, p.Address,
		p.City, p.Country, p.Locale, p.EmailNotifications, p.PushNotifications,
		p.UpdatedAt, p.DeletedAt, p.Version).Scan(&next)
	if err != nil {
		err = translate(err)
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		var exists bool
		if qErr := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE account_id = $1)`, p.AccountID).Scan(&exists); qErr != nil {
			return qErr
		}
		if exists {
			return repository.ErrVersionConflict
		}
		return repository.ErrNotFound
	}
	p.Version = next
	return nil
}

// SetDeleted moves the soft-delete marker without a version check; it only
// runs inside the account's own delete/restore transaction.
func (r *ProfileRepository) SetDeleted(ctx context.Context, accountID string, deletedAt *time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.q.Exec(ctx, `
		UPDATE profiles
		SET deleted_at = $2, updated_at = now(), version = version + 1
		WHERE account_id = $1
	`, accountID, deletedAt)
	return translate(err)
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)
