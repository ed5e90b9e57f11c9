package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"orcamentos/internal/core"
	"orcamentos/internal/store"
)

func TestMemoryStoreUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.CreateUser(ctx, core.User{Name: "Ana", Email: " Ana@Example.com", PasswordHash: "h"})
	if err != nil || id != 1 {
		t.Fatalf("unexpected create: id=%d err=%v", id, err)
	}
	if _, err := s.CreateUser(ctx, core.User{Name: "X", Email: "ana@example.com"}); !errors.Is(err, store.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	u, err := s.FindUserByEmail(ctx, "ANA@example.com")
	if err != nil || u.ID != 1 || u.Name != "Ana" {
		t.Fatalf("unexpected find: %+v %v", u, err)
	}
	if _, err := s.GetUser(ctx, 2); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryStoreBudgetEntries(t *testing.T) {
	s := New()
	ctx := context.Background()
	u1, _ := s.CreateUser(ctx, core.User{Email: "a@example.com"})
	u2, _ := s.CreateUser(ctx, core.User{Email: "b@example.com"})

	if _, err := s.CreateBudgetEntry(ctx, core.BudgetEntry{Title: "X", OwnerID: 9}); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown owner, got %v", err)
	}

	for _, owner := range []int64{u1, u2, u1} {
		if _, err := s.CreateBudgetEntry(ctx, core.BudgetEntry{Title: "t", Year: 2024, OwnerID: owner}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	mine, _ := s.ListBudgetEntriesByOwner(ctx, u1)
	if len(mine) != 2 || mine[0].ID != 1 || mine[1].ID != 3 {
		t.Fatalf("unexpected owner list: %+v", mine)
	}
	all, _ := s.ListBudgetEntries(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	e, err := s.GetBudgetEntry(ctx, 2)
	if err != nil || e.OwnerID != u2 {
		t.Fatalf("unexpected get: %+v %v", e, err)
	}
	if _, err := s.GetBudgetEntry(ctx, 4); !errors.Is(err, store.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentRegistrationSameEmail(t *testing.T) {
	s := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateUser(context.Background(), core.User{Email: "same@example.com"}); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("expected exactly one successful registration, got %d", success)
	}
}
