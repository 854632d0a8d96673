package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/oksasatya/account-service/internal/domain/cachekey"
	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/pkg/metrics"
)

// cachedAccount is the cache representation of an account. It has no
// credential hash field, so the hash can never reach the cache.
type cachedAccount struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Status        string     `json:"status"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	Version       int64      `json:"version"`
}

func toCachedAccount(a *entity.Account) cachedAccount {
	return cachedAccount{
		ID:            a.ID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Status:        string(a.Status),
		Active:        a.Active,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		LastLoginAt:   a.LastLoginAt,
		Version:       a.Version,
	}
}

func (c cachedAccount) account() *entity.Account {
	return &entity.Account{
		ID:            c.ID,
		Email:         c.Email,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Status:        entity.AccountStatus(c.Status),
		Active:        c.Active,
		EmailVerified: c.EmailVerified,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		LastLoginAt:   c.LastLoginAt,
		Version:       c.Version,
	}
}

// accountCache applies the read-through and write rules for account entries.
type accountCache struct {
	cache       Cache
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	logger      *logrus.Logger
	metrics     *metrics.Metrics
}

type loader func(ctx context.Context) (*entity.Account, error)

func (c *accountCache) byID(ctx context.Context, id string, load loader) (*entity.Account, error) {
	return c.readThrough(ctx, cachekey.Account(id), load)
}

func (c *accountCache) byEmail(ctx context.Context, email string, load loader) (*entity.Account, error) {
	return c.readThrough(ctx, cachekey.AccountByEmail(email), load)
}

// readThrough serves key from the cache, else loads once per key across
// concurrent callers and populates the entry. The shared load is detached
// from any one caller; each caller waits on its own ctx.
func (c *accountCache) readThrough(ctx context.Context, key string, load loader) (*entity.Account, error) {
	if b, ok := c.cache.Get(ctx, key); ok {
		var ca cachedAccount
		if err := json.Unmarshal(b, &ca); err == nil {
			c.metrics.ObserveCache(true)
			return ca.account(), nil
		}
		c.logger.WithField("key", key).Warn("discarding undecodable cache entry")
		c.cache.Invalidate(ctx, key)
	}
	c.metrics.ObserveCache(false)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		a, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.put(lctx, key, a)
		return a, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entity.Account).Clone(), nil
	}
}

func (c *accountCache) put(ctx context.Context, key string, a *entity.Account) {
	b, err := json.Marshal(toCachedAccount(a))
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("encode cache entry failed")
		return
	}
	c.cache.Put(ctx, key, b, c.ttl)
}

// written replaces the by-id entry and drops the by-email entry.
func (c *accountCache) written(ctx context.Context, a *entity.Account) {
	c.put(ctx, cachekey.Account(a.ID), a)
	c.cache.Invalidate(ctx, cachekey.AccountByEmail(a.Email))
}

// removed drops every entry of a soft-deleted account.
func (c *accountCache) removed(ctx context.Context, a *entity.Account) {
	c.cache.Invalidate(ctx, cachekey.Account(a.ID))
	c.cache.Invalidate(ctx, cachekey.AccountByEmail(a.Email))
}
