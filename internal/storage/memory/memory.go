// Package memory is the mock backend: every domain store kept in maps behind
// a single mutex, seeded from fixtures.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"detetive/internal/core"
	"detetive/internal/ports"
)

type Store struct {
	mu            sync.Mutex
	now           func() time.Time
	users         map[string]core.User
	accounts      map[string]core.Account
	categories    map[string]core.Category
	transactions  map[string]core.Transaction
	cards         map[string]core.CreditCard
	bills         map[string]core.Bill
	budgets       map[string]core.Budget
	notifications map[string]core.Notification
}

var (
	_ ports.UserStore         = (*Store)(nil)
	_ ports.AccountStore      = (*Store)(nil)
	_ ports.CategoryStore     = (*Store)(nil)
	_ ports.TransactionStore  = (*Store)(nil)
	_ ports.CardStore         = (*Store)(nil)
	_ ports.BudgetStore       = (*Store)(nil)
	_ ports.NotificationStore = (*Store)(nil)
	_ ports.Pinger            = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:           time.Now,
		users:         map[string]core.User{},
		accounts:      map[string]core.Account{},
		categories:    map[string]core.Category{},
		transactions:  map[string]core.Transaction{},
		cards:         map[string]core.CreditCard{},
		bills:         map[string]core.Bill{},
		budgets:       map[string]core.Budget{},
		notifications: map[string]core.Notification{},
	}
}

// WithClock overrides the timestamp source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) stamp(id *string, created, updated *time.Time) {
	now := s.now().UTC()
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func sortByCreated[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}

// Users

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrConflict
		}
	}
	var updated time.Time
	s.stamp(&u.ID, &u.CreatedAt, &updated)
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) ListUserIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Accounts

func (s *Store) ListAccounts(_ context.Context, userID string, includeInactive bool) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID == userID && (a.Active || includeInactive) {
			out = append(out, a)
		}
	}
	sortByCreated(out, func(a core.Account) time.Time { return a.CreatedAt }, func(a core.Account) string { return a.ID })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, userID, id string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.ID]; exists && a.ID != "" {
		return core.Account{}, core.ErrConflict
	}
	s.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	s.putAccount(a)
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return core.Account{}, core.ErrNotFound
	}
	a.CreatedAt = cur.CreatedAt
	a.Balance = cur.Balance
	s.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	s.putAccount(a)
	return a, nil
}

// putAccount stores a and keeps the single-default rule. Caller holds mu.
func (s *Store) putAccount(a core.Account) {
	if a.IsDefault && a.Active {
		for id, other := range s.accounts {
			if id != a.ID && other.UserID == a.UserID && other.IsDefault {
				other.IsDefault = false
				other.UpdatedAt = a.UpdatedAt
				s.accounts[id] = other
			}
		}
	}
	if !a.Active {
		a.IsDefault = false
	}
	s.accounts[a.ID] = a
}

func (s *Store) AdjustBalance(_ context.Context, userID, id string, delta core.Money) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = s.now().UTC()
	s.accounts[id] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID || !a.Active {
		return core.ErrNotFound
	}
	a.Active = false
	a.IsDefault = false
	a.UpdatedAt = s.now().UTC()
	s.accounts[id] = a
	return nil
}

// Categories

func (s *Store) ListCategories(_ context.Context, userID string, includeInactive bool) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID && (c.Active || includeInactive) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, userID, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

// nameTaken reports an active category with the same name. Caller holds mu.
func (s *Store) nameTaken(c core.Category) bool {
	for id, other := range s.categories {
		if id != c.ID && other.UserID == c.UserID && other.Active &&
			strings.EqualFold(strings.TrimSpace(other.Name), strings.TrimSpace(c.Name)) {
			return true
		}
	}
	return false
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Active && s.nameTaken(c) {
		return core.Category{}, core.ErrConflict
	}
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.categories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.Category{}, core.ErrNotFound
	}
	if c.Active && s.nameTaken(c) {
		return core.Category{}, core.ErrConflict
	}
	c.CreatedAt = cur.CreatedAt
	s.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID || !c.Active {
		return core.ErrNotFound
	}
	c.Active = false
	c.UpdatedAt = s.now().UTC()
	s.categories[id] = c
	return nil
}
