package memory

import (
	"context"
	"sync"
	"time"

	"orcamentos/internal/core"
	"orcamentos/internal/store"
)

// Store keeps users and budget entries in process memory. Ids start at 1.
type Store struct {
	mu      sync.Mutex
	users   []core.User
	entries []core.BudgetEntry
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) CreateUser(_ context.Context, u core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = core.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return 0, store.ErrEmailExists
		}
	}
	u.ID = int64(len(s.users) + 1)
	u.CreatedAt = s.now().UTC()
	s.users = append(s.users, u)
	return u.ID, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	email = core.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, store.ErrUserNotFound
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id <= 0 || id > int64(len(s.users)) {
		return core.User{}, store.ErrUserNotFound
	}
	return s.users[id-1], nil
}

// CreateBudgetEntry stores the entry; the owner must exist, mirroring the SQL foreign key.
func (s *Store) CreateBudgetEntry(_ context.Context, e core.BudgetEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.OwnerID <= 0 || e.OwnerID > int64(len(s.users)) {
		return 0, store.ErrUserNotFound
	}
	e.ID = int64(len(s.entries) + 1)
	e.CreatedAt = s.now().UTC()
	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *Store) GetBudgetEntry(_ context.Context, id int64) (core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id <= 0 || id > int64(len(s.entries)) {
		return core.BudgetEntry{}, store.ErrBudgetNotFound
	}
	return s.entries[id-1], nil
}

func (s *Store) ListBudgetEntries(_ context.Context) ([]core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetEntry{}, s.entries...), nil
}

func (s *Store) ListBudgetEntriesByOwner(_ context.Context, ownerID int64) ([]core.BudgetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.FilterByOwner(s.entries, ownerID), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
