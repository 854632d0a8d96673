package application

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/internal/domain/repository"
	"github.com/oksasatya/account-service/pkg/helpers"
)

func newHousekeeping(f *fixture, retention time.Duration) *Housekeeping {
	h := NewHousekeeping(f.store, f.svc.Tokens(), helpers.NewNopLogger(), f.metrics, time.Hour, retention)
	h.Now = f.clock.Now
	return h
}

func TestHousekeepingSweepsExpiredTokens(t *testing.T) {
	f := newFixture(t)
	stale := f.create(t, "stale@example.com")
	f.clock.Advance(testTokenTTL / 2)
	fresh := f.create(t, "fresh@example.com")
	f.clock.Advance(testTokenTTL/2 + time.Minute)

	newHousekeeping(f, 0).RunOnce(context.Background())

	assert.Zero(t, f.tokenCount(t, stale.ID))
	assert.Equal(t, 1, f.tokenCount(t, fresh.ID))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.TokensSwept))
}

func TestHousekeepingPurgesAfterRetention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.createVerified(t, "old@example.com")
	require.NoError(t, f.svc.SoftDelete(ctx, old.ID, admin))
	f.clock.Advance(10 * 24 * time.Hour)
	recent := f.createVerified(t, "recent@example.com")
	require.NoError(t, f.svc.SoftDelete(ctx, recent.ID, admin))
	f.clock.Advance(time.Hour)

	newHousekeeping(f, 7*24*time.Hour).RunOnce(ctx)

	_, err := f.store.Accounts().FindByIDIncludingDeleted(ctx, old.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.store.Profiles().FindByAccountID(ctx, old.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.store.Accounts().FindByIDIncludingDeleted(ctx, recent.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AccountsPurged))

	_, err = f.svc.Restore(ctx, old.ID, admin)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestHousekeepingWithoutRetentionKeepsDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "alice@example.com")
	require.NoError(t, f.svc.SoftDelete(ctx, a.ID, admin))
	f.clock.Advance(365 * 24 * time.Hour)

	newHousekeeping(f, 0).RunOnce(ctx)

	_, err := f.store.Accounts().FindByIDIncludingDeleted(ctx, a.ID)
	assert.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	f := newFixture(t)
	f.create(t, "alice@example.com")
	f.clock.Advance(testTokenTTL + time.Minute)

	h := newHousekeeping(f, 0)
	h.Start()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.TokensSwept) == 1
	}, 2*time.Second, 10*time.Millisecond)
	h.Stop()
}
