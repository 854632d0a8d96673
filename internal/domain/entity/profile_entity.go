package entity

import "time"

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Profile holds optional personal data, 1:1 with Account by AccountID.
// It has its own soft-delete marker and version.
type Profile struct {
	AccountID          string
	AvatarURL          *string
	Bio                *string
	DateOfBirth        *time.Time
	Gender             *Gender
	Phone              *string
	Address            *string
	City               *string
	Country            *string
	Locale             *string
	EmailNotifications bool
	PushNotifications  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
	Version            int64
}

// NewProfile returns an empty profile with notification defaults switched on.
func NewProfile(accountID string, now time.Time) *Profile {
	return &Profile{
		AccountID:          accountID,
		EmailNotifications: true,
		PushNotifications:  true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.AvatarURL = cloneString(p.AvatarURL)
	c.Bio = cloneString(p.Bio)
	c.Phone = cloneString(p.Phone)
	c.Address = cloneString(p.Address)
	c.City = cloneString(p.City)
	c.Country = cloneString(p.Country)
	c.Locale = cloneString(p.Locale)
	if p.DateOfBirth != nil {
		t := *p.DateOfBirth
		c.DateOfBirth = &t
	}
	if p.Gender != nil {
		g := *p.Gender
		c.Gender = &g
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
