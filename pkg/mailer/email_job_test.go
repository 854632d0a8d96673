package mailer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/internal/domain/event"
	mailtpl "github.com/oksasatya/account-service/pkg/mailer/templates"
)

func TestVerifyURL(t *testing.T) {
	tests := []struct {
		base, token, want string
	}{
		{"https://app.example/verify", "abc", "https://app.example/verify?token=abc"},
		{"https://app.example/verify?src=mail", "abc", "https://app.example/verify?src=mail&token=abc"},
		{"https://app.example/verify?token=old", "new", "https://app.example/verify?token=new"},
		{"https://app.example/verify", "a+b/c=", "https://app.example/verify?token=a%2Bb%2Fc%3D"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerifyURL(tt.base, tt.token))
	}
}

func TestJobFor(t *testing.T) {
	cfg := testConfig()
	exp := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	job, ok := JobFor(cfg, event.NewEmailVerificationRequested("acc-1", "alice@example.com", "", "tok", exp, exp))
	require.True(t, ok)
	assert.Equal(t, mailtpl.VerifyEmail, job.Template)
	assert.Equal(t, "alice@example.com", job.To)
	assert.Equal(t, "alice@example.com", job.Data["Name"], "name falls back to the address")
	assert.Equal(t, "https://app.acme.example/verify?src=mail&token=tok", job.Data["VerifyURL"])

	job, ok = JobFor(cfg, event.NewEmailVerified("acc-1", "alice@example.com", exp))
	require.True(t, ok)
	assert.Equal(t, mailtpl.EmailVerified, job.Template)

	_, ok = JobFor(cfg, event.NewAccountRestored("acc-1", "ACTIVE", exp))
	assert.False(t, ok)
}
