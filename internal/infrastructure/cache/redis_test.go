package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/metrics"
)

func newCacheForTest(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, time.Second, helpers.NewNopLogger(), nil)
}

func TestPutGetInvalidate(t *testing.T) {
	mr, c := newCacheForTest(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "account:1")
	assert.False(t, ok)

	c.Put(ctx, "account:1", []byte(`{"id":"1"}`), time.Minute)
	got, ok := c.Get(ctx, "account:1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"1"}`, string(got))
	assert.Equal(t, time.Minute, mr.TTL("account:1"))

	c.Invalidate(ctx, "account:1")
	_, ok = c.Get(ctx, "account:1")
	assert.False(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	mr, c := newCacheForTest(t)
	ctx := context.Background()

	c.Put(ctx, "k", []byte("v"), time.Minute)
	mr.FastForward(time.Minute + time.Second)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestIncrementStartsWindowOnFirstHit(t *testing.T) {
	mr, c := newCacheForTest(t)
	ctx := context.Background()

	n, ok := c.Increment(ctx, "ratelimit:login:ip:1", time.Minute)
	require.True(t, ok)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:login:ip:1"))

	mr.FastForward(30 * time.Second)
	n, ok = c.Increment(ctx, "ratelimit:login:ip:1", time.Minute)
	require.True(t, ok)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 30*time.Second, mr.TTL("ratelimit:login:ip:1"))

	mr.FastForward(31 * time.Second)
	n, _ = c.Increment(ctx, "ratelimit:login:ip:1", time.Minute)
	assert.EqualValues(t, 1, n)
}

func TestIncrementRestoresMissingWindow(t *testing.T) {
	mr, c := newCacheForTest(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("ratelimit:login:ip:2", "5"))
	require.Zero(t, mr.TTL("ratelimit:login:ip:2"))

	n, ok := c.Increment(ctx, "ratelimit:login:ip:2", time.Minute)
	require.True(t, ok)
	assert.EqualValues(t, 6, n)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:login:ip:2"), "a counter left without ttl gets one")

	mr.FastForward(time.Minute + time.Second)
	n, _ = c.Increment(ctx, "ratelimit:login:ip:2", time.Minute)
	assert.EqualValues(t, 1, n)
}

func TestUnavailableServerDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	m := metrics.New(prometheus.NewRegistry())
	c := NewRedisCache(client, 100*time.Millisecond, helpers.NewNopLogger(), m)
	mr.Close()

	ctx := context.Background()
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Put(ctx, "k", []byte("v"), time.Minute)
	c.Invalidate(ctx, "k")
	_, ok = c.Increment(ctx, "k", time.Minute)
	assert.False(t, ok)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheErrors.WithLabelValues("get")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheErrors.WithLabelValues("put")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheErrors.WithLabelValues("increment")))
}

func TestNilClientIsANoop(t *testing.T) {
	c := NewRedisCache(nil, 0, nil, nil)
	ctx := context.Background()
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Put(ctx, "k", nil, time.Minute)
	_, ok = c.Increment(ctx, "k", time.Minute)
	assert.False(t, ok)
}
