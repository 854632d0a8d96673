package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/config"
)

func TestRenderVerifyEmail(t *testing.T) {
	cfg := &config.Config{AppName: "Acme"}
	exp := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	data := NewVerifyEmailData(cfg, "<b>Eve</b>", "eve@example.com", "https://app.example/verify?token=t1", WithExpiresAt(exp))

	subject, text, html, err := Render(VerifyEmail, data)
	require.NoError(t, err)
	assert.Equal(t, "Verify your email for Acme", subject)
	assert.Contains(t, text, "https://app.example/verify?token=t1")
	assert.Contains(t, text, "02 Mar 2024 09:00 UTC")
	assert.NotContains(t, html, "<b>Eve</b>", "html body escapes data")
	assert.Contains(t, html, "&lt;b&gt;Eve&lt;/b&gt;")
}

func TestRenderEmailVerified(t *testing.T) {
	subject, text, html, err := Render(EmailVerified, NewEmailVerifiedData(&config.Config{CompanyName: "Acme"}, "Alice", "alice@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, subject)
	assert.Contains(t, text, "Alice")
	assert.Contains(t, html, "Acme")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := Render("nope", map[string]any{})
	assert.Error(t, err)
}

func TestDefaultFn(t *testing.T) {
	assert.Equal(t, "fallback", defaultFn("fallback", ""))
	assert.Equal(t, "fallback", defaultFn("fallback", nil))
	assert.Equal(t, "fallback", defaultFn("fallback", 0))
	assert.Equal(t, "set", defaultFn("fallback", "set"))
	assert.Equal(t, 3, defaultFn("fallback", 3))
}

func TestWithExpiresAtIgnoresZero(t *testing.T) {
	d := NewBaseEmailData(&config.Config{}, VerifyEmail, "", "a@example.com", WithExpiresAt(time.Time{}))
	assert.Empty(t, d.ExpiresAtText)
	assert.Equal(t, "a@example.com", d.Name)
}
