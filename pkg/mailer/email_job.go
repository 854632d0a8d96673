package mailer

import (
	"net/url"

	"github.com/oksasatya/account-service/config"
	"github.com/oksasatya/account-service/internal/domain/event"
	mailtpl "github.com/oksasatya/account-service/pkg/mailer/templates"
)

// EmailJob is one email to render and send: a template name and its data.
type EmailJob struct {
	To       string         `json:"to"`
	Template string         `json:"template"` // "verify_email" or "email_verified"
	Data     map[string]any `json:"data,omitempty"`
}

// JobFor maps a domain event to the email it triggers. Events that send no
// email return false.
func JobFor(cfg *config.Config, e event.Event) (EmailJob, bool) {
	switch ev := e.(type) {
	case event.EmailVerificationRequested:
		return EmailJob{
			To:       ev.Email(),
			Template: mailtpl.VerifyEmail,
			Data: mailtpl.NewVerifyEmailData(cfg, ev.RecipientName(), ev.Email(),
				VerifyURL(cfg.VerifyEmailURL, ev.VerificationToken()),
				mailtpl.WithExpiresAt(ev.ExpiresAt())),
		}, true
	case event.EmailVerified:
		return EmailJob{
			To:       ev.Email(),
			Template: mailtpl.EmailVerified,
			Data:     mailtpl.NewEmailVerifiedData(cfg, "", ev.Email()),
		}, true
	}
	return EmailJob{}, false
}

// VerifyURL appends the token as the "token" query parameter of base.
func VerifyURL(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Render resolves the job's template into subject, text and html bodies.
func (j EmailJob) Render() (subject, text, html string, err error) {
	return mailtpl.Render(j.Template, j.Data)
}
