package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/event"
	"github.com/oksasatya/account-service/internal/domain/repository"
)

var (
	ErrAvatarStorageDisabled = errors.New("avatar storage not configured")
	ErrInvalidAvatar         = errors.New("unsupported avatar image")
)

// ProfilePatch is a partial profile update; nil fields are left alone. A
// non-zero Version is the profile version the caller read.
type ProfilePatch struct {
	AvatarURL          *string
	Bio                *string
	DateOfBirth        *time.Time
	Gender             *entity.Gender
	Phone              *string
	Address            *string
	City               *string
	Country            *string
	Locale             *string
	EmailNotifications *bool
	PushNotifications  *bool
	Version            int64
}

func (s *Service) GetProfile(ctx context.Context, accountID string, actor entity.Actor) (*entity.Profile, error) {
	if !s.canManage(accountID, actor) {
		return nil, ErrActionNotAllowed
	}
	if _, err := s.store.Accounts().FindByID(ctx, accountID); err != nil {
		return nil, storeErr("find account", err, ErrAccountNotFound)
	}
	p, err := s.store.Profiles().FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, storeErr("find profile", err, ErrProfileNotFound)
	}
	if p.DeletedAt != nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// UpdateProfile applies the non-nil fields of patch, creating the profile
// first if the account has none.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, patch ProfilePatch, actor entity.Actor) (*entity.Profile, error) {
	if !s.canManage(accountID, actor) {
		return nil, ErrActionNotAllowed
	}
	var (
		p       *entity.Profile
		changed map[string]any
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Accounts().FindByID(ctx, accountID); err != nil {
			return storeErr("find account", err, ErrAccountNotFound)
		}
		var err error
		p, err = tx.Profiles().FindByAccountID(ctx, accountID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			p = entity.NewProfile(accountID, s.now())
			if err := tx.Profiles().Create(ctx, p); err != nil {
				return storeErr("create profile", err, ErrAccountNotFound)
			}
		case err != nil:
			return fmt.Errorf("find profile: %w", err)
		case p.DeletedAt != nil:
			return ErrProfileNotFound
		}
		if patch.Version != 0 && p.Version != patch.Version {
			return ErrConcurrentModification
		}

		changed = applyProfilePatch(p, patch)
		if len(changed) == 0 {
			return nil
		}
		p.UpdatedAt = s.now()
		if err := tx.Profiles().Save(ctx, p); err != nil {
			return storeErr("save profile", err, ErrProfileNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		s.publish(context.WithoutCancel(ctx), event.NewProfileUpdated(accountID, changed, p.UpdatedAt))
	}
	return p, nil
}

// UploadAvatar stores the image and points the profile at it.
func (s *Service) UploadAvatar(ctx context.Context, accountID string, actor entity.Actor, r io.Reader, filename, contentType string) (*entity.Profile, error) {
	if !s.canManage(accountID, actor) {
		return nil, ErrActionNotAllowed
	}
	if s.avatars == nil {
		return nil, ErrAvatarStorageDisabled
	}
	if _, err := s.store.Accounts().FindByID(ctx, accountID); err != nil {
		return nil, storeErr("find account", err, ErrAccountNotFound)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", accountID, uuid.NewString()+ext))
	url, err := s.avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	return s.UpdateProfile(ctx, accountID, ProfilePatch{AvatarURL: &url}, actor)
}

// applyProfilePatch mutates p and returns the fields whose value changed.
func applyProfilePatch(p *entity.Profile, patch ProfilePatch) map[string]any {
	changed := map[string]any{}
	setString := func(name string, dst **string, v *string) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if *dst != nil && **dst == nv {
			return
		}
		if *dst == nil && nv == "" {
			return
		}
		*dst = &nv
		changed[name] = nv
	}
	setString("avatarUrl", &p.AvatarURL, patch.AvatarURL)
	setString("bio", &p.Bio, patch.Bio)
	setString("phone", &p.Phone, patch.Phone)
	setString("address", &p.Address, patch.Address)
	setString("city", &p.City, patch.City)
	setString("country", &p.Country, patch.Country)
	setString("locale", &p.Locale, patch.Locale)

	if patch.DateOfBirth != nil {
		dob := patch.DateOfBirth.UTC().Truncate(24 * time.Hour)
		if p.DateOfBirth == nil || !p.DateOfBirth.Equal(dob) {
			p.DateOfBirth = &dob
			changed["dateOfBirth"] = dob.Format(time.DateOnly)
		}
	}
	if patch.Gender != nil && (p.Gender == nil || *p.Gender != *patch.Gender) {
		g := *patch.Gender
		p.Gender = &g
		changed["gender"] = string(g)
	}
	if patch.EmailNotifications != nil && p.EmailNotifications != *patch.EmailNotifications {
		p.EmailNotifications = *patch.EmailNotifications
		changed["emailNotifications"] = p.EmailNotifications
	}
	if patch.PushNotifications != nil && p.PushNotifications != *patch.PushNotifications {
		p.PushNotifications = *patch.PushNotifications
		changed["pushNotifications"] = p.PushNotifications
	}
	return changed
}
