package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/pkg/helpers"
)

func TestLoginIssuesParsableToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createVerified(t, "alice@example.com")
	require.NoError(t, f.store.Accounts().AssignRole(ctx, a.ID, entity.RoleUser))

	jwt := helpers.NewJWTManager("test-secret", "account-service", 15*time.Minute)
	auth := NewAuthService(f.svc, jwt, helpers.NewNopLogger())

	res, err := auth.Login(ctx, "alice@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.Account.ID)
	assert.Equal(t, []string{entity.RoleUser}, res.Roles)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), res.ExpiresAt, time.Minute)

	claims, err := jwt.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entity.Actor{ID: a.ID}, ActorFromClaims(claims))

	_, err = auth.Login(ctx, "alice@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestActorFromClaims(t *testing.T) {
	got := ActorFromClaims(&helpers.Claims{AccountID: "a1", Roles: []string{entity.RoleUser, entity.RoleAdmin}})
	assert.Equal(t, entity.Actor{ID: "a1", Admin: true}, got)
}
