package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeActive(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		status   AccountStatus
		verified bool
		deleted  *time.Time
		want     bool
	}{
		{"active and verified", StatusActive, true, nil, true},
		{"active but unverified", StatusActive, false, nil, false},
		{"pending", StatusPendingVerification, true, nil, false},
		{"suspended", StatusSuspended, true, nil, false},
		{"deleted", StatusActive, true, &now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Status: tt.status, EmailVerified: tt.verified, DeletedAt: tt.deleted, Active: !tt.want}
			a.RecomputeActive()
			assert.Equal(t, tt.want, a.Active)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestCloneDoesNotAlias(t *testing.T) {
	now := time.Now()
	by := "admin"
	a := &Account{ID: "a1", LastLoginAt: &now, DeletedAt: &now, DeletedBy: &by}

	c := a.Clone()
	require.NotSame(t, a, c)
	require.NotSame(t, a.LastLoginAt, c.LastLoginAt)
	require.NotSame(t, a.DeletedBy, c.DeletedBy)

	*c.DeletedBy = "someone"
	assert.Equal(t, "admin", *a.DeletedBy)
	assert.Nil(t, (*Account)(nil).Clone())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Alice Smith", (&Account{FirstName: " Alice", LastName: "Smith "}).FullName())
	assert.Equal(t, "Alice", (&Account{FirstName: "Alice"}).FullName())
}

func TestVerificationTokenExpired(t *testing.T) {
	now := time.Now()
	tok := &VerificationToken{ExpiresAt: now}
	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Nanosecond)))
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole([]string{RoleUser, RoleAdmin}, RoleAdmin))
	assert.False(t, HasRole(nil, RoleAdmin))
}
