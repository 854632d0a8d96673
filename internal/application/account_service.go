package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/event"
	"github.com/oksasatya/account-service/internal/domain/repository"
	"github.com/oksasatya/account-service/pkg/helpers"
	"github.com/oksasatya/account-service/pkg/metrics"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Deps are the collaborators of Service. Indexer and Avatars are optional.
type Deps struct {
	Store   repository.Store
	Cache   Cache
	Events  EventPublisher
	Indexer SearchIndexer
	Avatars AvatarStorage
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

type Options struct {
	CacheTTL       time.Duration
	TokenTTL       time.Duration
	PublishTimeout time.Duration
	// LoadTimeout bounds a cache miss load shared by concurrent callers.
	LoadTimeout    time.Duration
	Now            func() time.Time
}

// Service owns the account lifecycle. Store writes happen in one
// transaction per call; cache, bus and index updates follow the commit and
// never fail the call.
type Service struct {
	store          repository.Store
	cache          *accountCache
	tokens         *VerificationTokens
	events         EventPublisher
	indexer        SearchIndexer
	avatars        AvatarStorage
	logger         *logrus.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	publishTimeout time.Duration
}

func NewService(d Deps, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 5 * time.Second
	}
	if d.Logger == nil {
		d.Logger = helpers.NewNopLogger()
	}
	now := func() time.Time { return opts.Now().UTC() }
	return &Service{
		store: d.Store,
		cache: &accountCache{
			cache:       d.Cache,
			ttl:         opts.CacheTTL,
			loadTimeout: opts.LoadTimeout,
			logger:      d.Logger,
			metrics:     d.Metrics,
		},
		tokens:         NewVerificationTokens(d.Store, opts.TokenTTL, now),
		events:         d.Events,
		indexer:        d.Indexer,
		avatars:        d.Avatars,
		logger:         d.Logger,
		metrics:        d.Metrics,
		now:            now,
		publishTimeout: opts.PublishTimeout,
	}
}

// Tokens exposes the verification token manager to housekeeping.
func (s *Service) Tokens() *VerificationTokens { return s.tokens }

type CreateAccountInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AccountPatch is a partial basic-info update. A non-zero Version is the
// version the caller read; the update fails if the account moved on since.
type AccountPatch struct {
	FirstName *string
	LastName  *string
	Version   int64
}

type VerifyResult struct {
	Account         *entity.Account
	AlreadyVerified bool
}

// Create registers a new account pending email verification.
func (s *Service) Create(ctx context.Context, in CreateAccountInput) (*entity.Account, error) {
	email := entity.NormalizeEmail(in.Email)
	exists, err := s.store.Accounts().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	now := s.now()
	a := &entity.Account{
		ID:             uuid.NewString(),
		Email:          email,
		CredentialHash: hash,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Status:         entity.StatusPendingVerification,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	a.RecomputeActive()

	var token *entity.VerificationToken
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Accounts().Create(ctx, a); err != nil {
			return storeErr("create account", err, ErrAccountNotFound)
		}
		if err := tx.Profiles().Create(ctx, entity.NewProfile(a.ID, now)); err != nil {
			return storeErr("create profile", err, ErrAccountNotFound)
		}
		token, err = s.tokens.Issue(ctx, tx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementAccountsCreated()
	s.logger.WithFields(logrus.Fields{"account_id": a.ID}).Info("account created")
	s.committed(ctx, a,
		event.NewAccountCreated(a.ID, a.Email, a.FirstName, a.LastName, now),
		event.NewEmailVerificationRequested(a.ID, a.Email, a.FullName(), token.Token, token.ExpiresAt, now),
	)
	return a, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return s.cache.byID(ctx, id, func(ctx context.Context) (*entity.Account, error) {
		a, err := s.store.Accounts().FindByID(ctx, id)
		if err != nil {
			return nil, storeErr("find account", err, ErrAccountNotFound)
		}
		return a, nil
	})
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return s.cache.byEmail(ctx, email, func(ctx context.Context) (*entity.Account, error) {
		a, err := s.store.Accounts().FindByEmail(ctx, email)
		if err != nil {
			return nil, storeErr("find account by email", err, ErrAccountNotFound)
		}
		return a, nil
	})
}

// VerifyEmail consumes token and activates a pending account. A token for
// an already verified account is consumed and reported as AlreadyVerified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (VerifyResult, error) {
	var (
		res    VerifyResult
		events []event.Event
	)
	err := s.tokens.Consume(ctx, token, func(tx repository.Store, t *entity.VerificationToken) error {
		a, err := tx.Accounts().FindByID(ctx, t.AccountID)
		if err != nil {
			return storeErr("find account", err, ErrAccountNotFound)
		}
		res.Account = a
		if a.EmailVerified {
			res.AlreadyVerified = true
			return nil
		}
		events, err = s.markVerified(ctx, tx, a)
		return err
	})
	if err != nil {
		return VerifyResult{}, err
	}
	if !res.AlreadyVerified {
		s.committed(ctx, res.Account, events...)
	}
	return res, nil
}

// VerifyEmailByAdmin marks the account verified without a token and drops
// any outstanding token.
func (s *Service) VerifyEmailByAdmin(ctx context.Context, id string, actor entity.Actor) (VerifyResult, error) {
	if !actor.Admin {
		return VerifyResult{}, ErrActionNotAllowed
	}
	var (
		res    VerifyResult
		events []event.Event
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		a, err := tx.Accounts().FindByID(ctx, id)
		if err != nil {
			return storeErr("find account", err, ErrAccountNotFound)
		}
		if err := s.tokens.Invalidate(ctx, tx, a.ID); err != nil {
			return err
		}
		res.Account = a
		if a.EmailVerified {
			res.AlreadyVerified = true
			return nil
		}
		events, err = s.markVerified(ctx, tx, a)
		return err
	})
	if err != nil {
		return VerifyResult{}, err
	}
	if !res.AlreadyVerified {
		s.committed(ctx, res.Account, events...)
	}
	return res, nil
}

func (s *Service) markVerified(ctx context.Context, tx repository.Store, a *entity.Account) ([]event.Event, error) {
	now := s.now()
	previous := a.Status
	a.EmailVerified = true
	if a.Status == entity.StatusPendingVerification {
		a.Status = entity.StatusActive
	}
	a.UpdatedAt = now
	a.RecomputeActive()
	if err := tx.Accounts().Save(ctx, a); err != nil {
		return nil, storeErr("save account", err, ErrAccountNotFound)
	}
	events := []event.Event{event.NewEmailVerified(a.ID, a.Email, now)}
	if previous != a.Status {
		events = append(events, event.NewAccountStatusChanged(a.ID, string(previous), string(a.Status), now))
		s.metrics.IncrementStatusChange(string(a.Status))
	}
	return events, nil
}

// ResendVerification reissues the token of an unverified account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	var (
		a     *entity.Account
		token *entity.VerificationToken
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		a, err = tx.Accounts().FindByEmail(ctx, email)
		if err != nil {
			return storeErr("find account by email", err, ErrAccountNotFound)
		}
		if a.EmailVerified {
			return fmt.Errorf("%w: email already verified", ErrActionNotAllowed)
		}
		token, err = s.tokens.Issue(ctx, tx, a.ID)
		return err
	})
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, event.NewEmailVerificationRequested(a.ID, a.Email, a.FullName(), token.Token, token.ExpiresAt, s.now()))
	return nil
}

// UpdateBasicInfo applies the non-nil fields of patch. Unchanged values
// produce no write and no event.
func (s *Service) UpdateBasicInfo(ctx context.Context, id string, patch AccountPatch, actor entity.Actor) (*entity.Account, error) {
	if !s.canManage(id, actor) {
		return nil, ErrActionNotAllowed
	}
	changed := map[string]any{}
	a, saved, err := s.update(ctx, id, patch.Version, func(_ repository.Store, a *entity.Account) (bool, error) {
		if patch.FirstName != nil {
			if v := strings.TrimSpace(*patch.FirstName); v != a.FirstName {
				a.FirstName = v
				changed["firstName"] = v
			}
		}
		if patch.LastName != nil {
			if v := strings.TrimSpace(*patch.LastName); v != a.LastName {
				a.LastName = v
				changed["lastName"] = v
			}
		}
		return len(changed) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	if saved {
		s.committed(ctx, a, event.NewAccountUpdated(a.ID, changed, a.UpdatedAt))
	}
	return a, nil
}

func (s *Service) Activate(ctx context.Context, id string, actor entity.Actor) (*entity.Account, error) {
	return s.transition(ctx, id, actor, entity.StatusActive)
}

// Deactivate moves the account to INACTIVE, or DEACTIVATED when permanent.
func (s *Service) Deactivate(ctx context.Context, id string, actor entity.Actor, permanent bool) (*entity.Account, error) {
	if permanent {
		return s.transition(ctx, id, actor, entity.StatusDeactivated)
	}
	return s.transition(ctx, id, actor, entity.StatusInactive)
}

func (s *Service) Suspend(ctx context.Context, id string, actor entity.Actor) (*entity.Account, error) {
	return s.transition(ctx, id, actor, entity.StatusSuspended)
}

func (s *Service) Close(ctx context.Context, id string, actor entity.Actor) (*entity.Account, error) {
	return s.transition(ctx, id, actor, entity.StatusClosed)
}

func (s *Service) transition(ctx context.Context, id string, actor entity.Actor, target entity.AccountStatus) (*entity.Account, error) {
	if !actor.Admin {
		return nil, ErrActionNotAllowed
	}
	var previous entity.AccountStatus
	a, saved, err := s.update(ctx, id, 0, func(_ repository.Store, a *entity.Account) (bool, error) {
		if a.Status == target {
			return false, nil
		}
		previous, a.Status = a.Status, target
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if saved {
		s.metrics.IncrementStatusChange(string(target))
		s.logger.WithFields(logrus.Fields{
			"account_id": a.ID,
			"from":       previous,
			"to":         target,
			"actor":      actor.ID,
		}).Info("account status changed")
		s.committed(ctx, a, event.NewAccountStatusChanged(a.ID, string(previous), string(target), a.UpdatedAt))
	}
	return a, nil
}

// SoftDelete closes the account and marks it and its profile deleted.
func (s *Service) SoftDelete(ctx context.Context, id string, actor entity.Actor) error {
	if !s.canManage(id, actor) {
		return ErrActionNotAllowed
	}
	var a *entity.Account
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		a, err = tx.Accounts().FindByID(ctx, id)
		if err != nil {
			return storeErr("find account", err, ErrAccountNotFound)
		}
		now := s.now()
		by := actor.ID
		a.DeletedAt, a.DeletedBy = &now, &by
		a.Status = entity.StatusClosed
		a.UpdatedAt = now
		a.RecomputeActive()
		if err := tx.Accounts().SoftDelete(ctx, a); err != nil {
			return storeErr("delete account", err, ErrAccountNotFound)
		}
		if err := tx.Profiles().SetDeleted(ctx, a.ID, &now); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return s.tokens.Invalidate(ctx, tx, a.ID)
	})
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	s.cache.removed(ctx, a)
	s.publish(ctx, event.NewAccountDeleted(a.ID, actor.ID, *a.DeletedAt))
	s.unindex(ctx, a.ID)
	s.logger.WithFields(logrus.Fields{"account_id": a.ID, "actor": actor.ID}).Info("account deleted")
	return nil
}

// Restore clears the deletion markers and reopens the account as ACTIVE.
func (s *Service) Restore(ctx context.Context, id string, actor entity.Actor) (*entity.Account, error) {
	if !actor.Admin {
		return nil, ErrActionNotAllowed
	}
	var a *entity.Account
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		a, err = tx.Accounts().FindByIDIncludingDeleted(ctx, id)
		if err != nil {
			return storeErr("find account", err, ErrAccountNotFound)
		}
		if !a.IsDeleted() {
			return ErrNotDeleted
		}
		a.DeletedAt, a.DeletedBy = nil, nil
		a.Status = entity.StatusActive
		a.UpdatedAt = s.now()
		a.RecomputeActive()
		if err := tx.Accounts().Restore(ctx, a); err != nil {
			return storeErr("restore account", err, ErrAccountNotFound)
		}
		if err := tx.Profiles().SetDeleted(ctx, a.ID, nil); err != nil {
			return fmt.Errorf("restore profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, a, event.NewAccountRestored(a.ID, string(a.Status), a.UpdatedAt))
	return a, nil
}

// Search pages through live accounts matching keyword on email or name.
func (s *Service) Search(ctx context.Context, keyword string, page, size int) (repository.Page[entity.Account], error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)
	// Keep the row offset page*size, and offset+size, within int.
	page = min(page, (math.MaxInt-size)/size)
	res, err := s.store.Accounts().Search(ctx, repository.SearchQuery{Keyword: keyword, Page: page, Size: size})
	if err != nil {
		return res, fmt.Errorf("search accounts: %w", err)
	}
	return res, nil
}

// IsOwner reports whether actorID is the account itself.
func (s *Service) IsOwner(accountID, actorID string) bool {
	return accountID != "" && accountID == actorID
}

func (s *Service) canManage(accountID string, actor entity.Actor) bool {
	return actor.Admin || s.IsOwner(accountID, actor.ID)
}

// Authenticate checks the credential of an active account and records the
// login time. It returns the account with its roles.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.Account, []string, error) {
	a, err := s.store.Accounts().FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		helpers.CompareHashAndPassword("", password)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find account by email: %w", err)
	}
	if !helpers.CompareHashAndPassword(a.CredentialHash, password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !a.Active {
		return nil, nil, ErrAccountInactive
	}

	a, _, err = s.update(ctx, a.ID, 0, func(_ repository.Store, a *entity.Account) (bool, error) {
		now := s.now()
		a.LastLoginAt = &now
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.cache.written(context.WithoutCancel(ctx), a)

	roles, err := s.store.Accounts().Roles(ctx, a.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load roles: %w", err)
	}
	return a, roles, nil
}

// update loads the live account, applies change and saves it when change
// reports a modification. base, when non-zero, must equal the stored version.
func (s *Service) update(ctx context.Context, id string, base int64, change func(tx repository.Store, a *entity.Account) (bool, error)) (*entity.Account, bool, error) {
	var (
		out   *entity.Account
		saved bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		a, err := tx.Accounts().FindByID(ctx, id)
		if err != nil {
			return storeErr("find account", err, ErrAccountNotFound)
		}
		if base != 0 && a.Version != base {
			return ErrConcurrentModification
		}
		out = a
		changed, err := change(tx, a)
		if err != nil || !changed {
			return err
		}
		a.UpdatedAt = s.now()
		a.RecomputeActive()
		if err := tx.Accounts().Save(ctx, a); err != nil {
			return storeErr("save account", err, ErrAccountNotFound)
		}
		saved = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, saved, nil
}

// committed runs the post-commit side effects of a write. The caller may
// already be gone, so cancellation is ignored from here on.
func (s *Service) committed(ctx context.Context, a *entity.Account, events ...event.Event) {
	ctx = context.WithoutCancel(ctx)
	s.cache.written(ctx, a)
	for _, e := range events {
		s.publish(ctx, e)
	}
	s.index(ctx, a)
}

// publish hands e to the bus once; failures are logged and dropped.
func (s *Service) publish(ctx context.Context, e event.Event) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	err := s.events.Publish(ctx, e)
	s.metrics.ObservePublish(string(e.Type()), err)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   e.ID(),
			"event_type": e.Type(),
			"account_id": e.AccountID(),
		}).Warn("publish event failed")
	}
}

func (s *Service) index(ctx context.Context, a *entity.Account) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Index(ctx, a); err != nil {
		s.logger.WithError(err).WithField("account_id", a.ID).Warn("es index failed")
	}
}

func (s *Service) unindex(ctx context.Context, id string) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.Remove(ctx, id); err != nil {
		s.logger.WithError(err).WithField("account_id", id).Warn("es delete failed")
	}
}

// storeErr translates repository sentinels into domain errors and wraps
// anything else with op.
func storeErr(op string, err error, notFound error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrConcurrentModification
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateIdentity
	}
	return fmt.Errorf("%s: %w", op, err)
}
