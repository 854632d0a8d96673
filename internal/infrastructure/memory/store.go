// Package memory is an in-process repository.Store used by tests and local
// runs without PostgreSQL. Transactions are serialized and roll back by
// restoring a snapshot.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/domain/repository"
)

type state struct {
	accounts map[string]*entity.Account
	emails   map[string]string
	profiles map[string]*entity.Profile
	tokens   map[string]*entity.VerificationToken
	roles    map[string][]string
}

func newState() *state {
	return &state{
		accounts: map[string]*entity.Account{},
		emails:   map[string]string{},
		profiles: map[string]*entity.Profile{},
		tokens:   map[string]*entity.VerificationToken{},
		roles:    map[string][]string{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v.Clone()
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v.Clone()
	}
	for k, v := range s.tokens {
		t := *v
		c.tokens[k] = &t
	}
	for k, v := range s.roles {
		c.roles[k] = append([]string(nil), v...)
	}
	return c
}

type shared struct {
	mu   sync.Mutex
	data *state
}

// Store implements repository.Store in memory.
type Store struct {
	sh   *shared
	inTx bool
}

func NewStore() *Store {
	return &Store{sh: &shared{data: newState()}}
}

// lock takes the store lock unless the caller already holds it through WithTx.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.sh.mu.Lock()
	return s.sh.mu.Unlock
}

func (s *Store) Accounts() repository.AccountRepository          { return accounts{s} }
func (s *Store) Profiles() repository.ProfileRepository          { return profiles{s} }
func (s *Store) Tokens() repository.VerificationTokenRepository { return tokens{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.sh.data = snapshot
		}
	}()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

type accounts struct{ s *Store }

func (r accounts) find(id string, includeDeleted bool) (*entity.Account, error) {
	a, ok := r.s.sh.data.accounts[id]
	if !ok || (!includeDeleted && a.IsDeleted()) {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r accounts) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	defer r.s.lock()()
	return r.find(id, false)
}

func (r accounts) FindByIDIncludingDeleted(ctx context.Context, id string) (*entity.Account, error) {
	defer r.s.lock()()
	return r.find(id, true)
}

func (r accounts) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	defer r.s.lock()()
	id, ok := r.s.sh.data.emails[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.find(id, false)
}

func (r accounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.sh.data.emails[entity.NormalizeEmail(email)]
	return ok, nil
}

func (r accounts) Create(ctx context.Context, a *entity.Account) error {
	defer r.s.lock()()
	d := r.s.sh.data
	key := entity.NormalizeEmail(a.Email)
	if _, ok := d.emails[key]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := d.accounts[a.ID]; ok {
		return repository.ErrDuplicate
	}
	if a.Version == 0 {
		a.Version = 1
	}
	d.accounts[a.ID] = a.Clone()
	d.emails[key] = a.ID
	return nil
}

func (r accounts) Save(ctx context.Context, a *entity.Account) error {
	defer r.s.lock()()
	d := r.s.sh.data
	cur, ok := d.accounts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != a.Version {
		return repository.ErrVersionConflict
	}
	oldKey, newKey := entity.NormalizeEmail(cur.Email), entity.NormalizeEmail(a.Email)
	if oldKey != newKey {
		if _, taken := d.emails[newKey]; taken {
			return repository.ErrDuplicate
		}
		delete(d.emails, oldKey)
		d.emails[newKey] = a.ID
	}
	a.Version++
	d.accounts[a.ID] = a.Clone()
	return nil
}

func (r accounts) SoftDelete(ctx context.Context, a *entity.Account) error { return r.Save(ctx, a) }
func (r accounts) Restore(ctx context.Context, a *entity.Account) error    { return r.Save(ctx, a) }

func (r accounts) Search(ctx context.Context, q repository.SearchQuery) (repository.Page[entity.Account], error) {
	defer r.s.lock()()
	page := repository.Page[entity.Account]{Page: q.Page, Size: q.Size}
	kw := strings.ToLower(strings.TrimSpace(q.Keyword))

	var hits []*entity.Account
	for _, a := range r.s.sh.data.accounts {
		if a.IsDeleted() {
			continue
		}
		if kw == "" ||
			strings.Contains(strings.ToLower(a.Email), kw) ||
			strings.Contains(strings.ToLower(a.FirstName), kw) ||
			strings.Contains(strings.ToLower(a.LastName), kw) {
			hits = append(hits, a)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID < hits[j].ID
	})
	page.TotalItems = int64(len(hits))

	if q.Page < 0 || q.Size <= 0 || q.Page > len(hits)/q.Size {
		return page, nil
	}
	start := q.Page * q.Size
	if start >= len(hits) {
		return page, nil
	}
	end := min(start+q.Size, len(hits))
	for _, a := range hits[start:end] {
		page.Items = append(page.Items, *a.Clone())
	}
	return page, nil
}

func (r accounts) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	defer r.s.lock()()
	d := r.s.sh.data
	var n int64
	for id, a := range d.accounts {
		if a.DeletedAt == nil || !a.DeletedAt.Before(before) {
			continue
		}
		delete(d.accounts, id)
		delete(d.emails, entity.NormalizeEmail(a.Email))
		delete(d.profiles, id)
		delete(d.roles, id)
		for k, t := range d.tokens {
			if t.AccountID == id {
				delete(d.tokens, k)
			}
		}
		n++
	}
	return n, nil
}

func (r accounts) Roles(ctx context.Context, accountID string) ([]string, error) {
	defer r.s.lock()()
	roles := append([]string(nil), r.s.sh.data.roles[accountID]...)
	sort.Strings(roles)
	return roles, nil
}

func (r accounts) AssignRole(ctx context.Context, accountID, role string) error {
	defer r.s.lock()()
	d := r.s.sh.data
	if _, ok := d.accounts[accountID]; !ok {
		return repository.ErrNotFound
	}
	if !entity.HasRole(d.roles[accountID], role) {
		d.roles[accountID] = append(d.roles[accountID], role)
	}
	return nil
}

type profiles struct{ s *Store }

func (r profiles) FindByAccountID(ctx context.Context, accountID string) (*entity.Profile, error) {
	defer r.s.lock()()
	p, ok := r.s.sh.data.profiles[accountID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p.Clone(), nil
}

func (r profiles) Create(ctx context.Context, p *entity.Profile) error {
	defer r.s.lock()()
	d := r.s.sh.data
	if _, ok := d.profiles[p.AccountID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := d.accounts[p.AccountID]; !ok {
		return repository.ErrNotFound
	}
	if p.Version == 0 {
		p.Version = 1
	}
	d.profiles[p.AccountID] = p.Clone()
	return nil
}

func (r profiles) Save(ctx context.Context, p *entity.Profile) error {
	defer r.s.lock()()
	cur, ok := r.s.sh.data.profiles[p.AccountID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != p.Version {
		return repository.ErrVersionConflict
	}
	p.Version++
	r.s.sh.data.profiles[p.AccountID] = p.Clone()
	return nil
}

func (r profiles) SetDeleted(ctx context.Context, accountID string, deletedAt *time.Time) error {
	defer r.s.lock()()
	p, ok := r.s.sh.data.profiles[accountID]
	if !ok {
		return nil
	}
	if deletedAt != nil {
		t := *deletedAt
		p.DeletedAt = &t
	} else {
		p.DeletedAt = nil
	}
	p.UpdatedAt = time.Now().UTC()
	p.Version++
	return nil
}

type tokens struct{ s *Store }

func (r tokens) Create(ctx context.Context, t *entity.VerificationToken) error {
	defer r.s.lock()()
	d := r.s.sh.data
	if _, ok := d.tokens[t.Token]; ok {
		return repository.ErrDuplicate
	}
	c := *t
	d.tokens[t.Token] = &c
	return nil
}

func (r tokens) Take(ctx context.Context, token string) (*entity.VerificationToken, error) {
	defer r.s.lock()()
	t, ok := r.s.sh.data.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.s.sh.data.tokens, token)
	c := *t
	return &c, nil
}

func (r tokens) DeleteByAccountID(ctx context.Context, accountID string) (int64, error) {
	defer r.s.lock()()
	var n int64
	for k, t := range r.s.sh.data.tokens {
		if t.AccountID == accountID {
			delete(r.s.sh.data.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r tokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock()()
	var n int64
	for k, t := range r.s.sh.data.tokens {
		if t.Expired(now) {
			delete(r.s.sh.data.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r tokens) CountByAccountID(ctx context.Context, accountID string) (int, error) {
	defer r.s.lock()()
	n := 0
	for _, t := range r.s.sh.data.tokens {
		if t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

var _ repository.Store = (*Store)(nil)
