package entity

import "time"

// VerificationToken is a single-use email verification secret.
// It is deleted on consumption, never flagged as used.
type VerificationToken struct {
	ID        string
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether now is past the expiry instant.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
