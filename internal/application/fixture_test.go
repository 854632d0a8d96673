package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/event"
	"github.com/oksasatya/account-service/internal/domain/repository"
	"github.com/oksasatya/account-service/internal/infrastructure/cache"
	"github.com/oksasatya/account-service/internal/infrastructure/memory"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/metrics"
)

const (
	testCacheTTL = 10 * time.Minute
	testTokenTTL = 24 * time.Hour
	testPassword = "Sup3r-secret!"
)

var admin = entity.Actor{ID: "admin-1", Admin: true}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// lastToken returns the token of the newest EmailVerificationRequested for accountID.
func (p *recordingPublisher) lastToken(t *testing.T, accountID string) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if e, ok := p.events[i].(event.EmailVerificationRequested); ok && e.AccountID() == accountID {
			return e.VerificationToken()
		}
	}
	t.Fatalf("no verification requested for %s", accountID)
	return ""
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[string]int64
	removed []string
}

func (f *fakeIndexer) Index(_ context.Context, a *entity.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[string]int64{}
	}
	f.indexed[a.ID] = a.Version
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type fakeAvatars struct {
	paths []string
	err   error
}

func (f *fakeAvatars) Upload(_ context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.paths = append(f.paths, objectPath)
	return "https://cdn.example.com/" + objectPath, nil
}

// countingStore counts account reads by id outside transactions.
type countingStore struct {
	repository.Store
	finds *atomic.Int64
}

func (s countingStore) Accounts() repository.AccountRepository {
	return countingAccounts{AccountRepository: s.Store.Accounts(), finds: s.finds}
}

type countingAccounts struct {
	repository.AccountRepository
	finds *atomic.Int64
}

func (r countingAccounts) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	r.finds.Add(1)
	return r.AccountRepository.FindByID(ctx, id)
}

// gatedStore holds account reads by id until release is closed.
type gatedStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
}

func (s gatedStore) Accounts() repository.AccountRepository {
	return gatedAccounts{AccountRepository: s.Store.Accounts(), entered: s.entered, release: s.release}
}

type gatedAccounts struct {
	repository.AccountRepository
	entered chan struct{}
	release chan struct{}
}

func (r gatedAccounts) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.AccountRepository.FindByID(ctx, id)
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	mr      *miniredis.Miniredis
	cache   *cache.RedisCache
	events  *recordingPublisher
	indexer *fakeIndexer
	avatars *fakeAvatars
	clock   *clock
	metrics *metrics.Metrics
	finds   *atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		store:   memory.NewStore(),
		mr:      mr,
		events:  &recordingPublisher{},
		indexer: &fakeIndexer{},
		avatars: &fakeAvatars{},
		clock:   &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		metrics: metrics.New(prometheus.NewRegistry()),
		finds:   &atomic.Int64{},
	}
	logger := helpers.NewNopLogger()
	f.cache = cache.NewRedisCache(client, time.Second, logger, f.metrics)
	f.svc = NewService(Deps{
		Store:   countingStore{Store: f.store, finds: f.finds},
		Cache:   f.cache,
		Events:  f.events,
		Indexer: f.indexer,
		Avatars: f.avatars,
		Logger:  logger,
		Metrics: f.metrics,
	}, Options{
		CacheTTL:       testCacheTTL,
		TokenTTL:       testTokenTTL,
		PublishTimeout: time.Second,
		Now:            f.clock.Now,
	})
	return f
}

func (f *fixture) create(t *testing.T, email string) *entity.Account {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateAccountInput{
		Email:     email,
		FirstName: "Alice",
		LastName:  "Smith",
		Password:  testPassword,
	})
	require.NoError(t, err)
	return a
}

// createVerified registers an account and consumes its verification token.
func (f *fixture) createVerified(t *testing.T, email string) *entity.Account {
	t.Helper()
	a := f.create(t, email)
	res, err := f.svc.VerifyEmail(context.Background(), f.events.lastToken(t, a.ID))
	require.NoError(t, err)
	return res.Account
}

func (f *fixture) tokenCount(t *testing.T, accountID string) int {
	t.Helper()
	n, err := f.store.Tokens().CountByAccountID(context.Background(), accountID)
	require.NoError(t, err)
	return n
}

func requireActiveInvariant(t *testing.T, a *entity.Account) {
	t.Helper()
	want := a.Status == entity.StatusActive && a.EmailVerified && a.DeletedAt == nil
	require.Equal(t, want, a.Active, "active must be derived from status, verification and deletion")
}

var errBusDown = errors.New("bus down")
