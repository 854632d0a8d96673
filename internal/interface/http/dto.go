package handlers

import (
	"time"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/repository"
	"github.com/oksasatya/account-service/pkg/response"
)

type accountResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Status        string     `json:"status"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	Version       int64      `json:"version"`
}

func toAccountResponse(a *entity.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Status:        string(a.Status),
		Active:        a.Active,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		LastLoginAt:   a.LastLoginAt,
		Version:       a.Version,
	}
}

func toAccountPage(p repository.Page[entity.Account]) ([]accountResponse, response.PageMeta) {
	items := make([]accountResponse, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, toAccountResponse(&p.Items[i]))
	}
	return items, response.PageMeta{Page: p.Page, Size: p.Size, TotalItems: p.TotalItems, TotalPages: p.TotalPages()}
}

type profileResponse struct {
	AccountID          string    `json:"account_id"`
	AvatarURL          *string   `json:"avatar_url"`
	Bio                *string   `json:"bio"`
	DateOfBirth        *string   `json:"date_of_birth"`
	Gender             *string   `json:"gender"`
	Phone              *string   `json:"phone"`
	Address            *string   `json:"address"`
	City               *string   `json:"city"`
	Country            *string   `json:"country"`
	Locale             *string   `json:"locale"`
	EmailNotifications bool      `json:"email_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	UpdatedAt          time.Time `json:"updated_at"`
	Version            int64     `json:"version"`
}

func toProfileResponse(p *entity.Profile) profileResponse {
	out := profileResponse{
		AccountID:          p.AccountID,
		AvatarURL:          p.AvatarURL,
		Bio:                p.Bio,
		Phone:              p.Phone,
		Address:            p.Address,
		City:               p.City,
		Country:            p.Country,
		Locale:             p.Locale,
		EmailNotifications: p.EmailNotifications,
		PushNotifications:  p.PushNotifications,
		UpdatedAt:          p.UpdatedAt,
		Version:            p.Version,
	}
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format(time.DateOnly)
		out.DateOfBirth = &s
	}
	if p.Gender != nil {
		s := string(*p.Gender)
		out.Gender = &s
	}
	return out
}
