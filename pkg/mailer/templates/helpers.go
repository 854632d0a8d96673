package templates

import (
	"time"

	"github.com/oksasatya/account-service/config"
)

// Option mutates EmailData
type Option func(*EmailData)

func WithVerifyURL(url string) Option { return func(d *EmailData) { d.VerifyURL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		if !t.IsZero() {
			d.ExpiresAt = t.UTC()
			d.ExpiresAtText = t.UTC().Format("02 Jan 2006 15:04 MST")
		}
	}
}

// NewBaseEmailData fills the company block from cfg; Name falls back to the address.
func NewBaseEmailData(cfg *config.Config, typ, name, email string, opts ...Option) EmailData {
	if name == "" {
		name = email
	}
	d := EmailData{
		Name:           name,
		Email:          email,
		Type:           typ,
		AppName:        cfg.AppName,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		SupportURL:     cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyEmailData(cfg *config.Config, name, email, verifyURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithVerifyURL(verifyURL)}, opts...)
	return ToMap(NewBaseEmailData(cfg, VerifyEmail, name, email, opts...))
}

func NewEmailVerifiedData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, EmailVerified, name, email, opts...))
}
