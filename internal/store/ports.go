package store

import (
	"context"
	"errors"

	"orcamentos/internal/core"
)

var (
	ErrEmailExists    = errors.New("email já cadastrado")
	ErrUserNotFound   = errors.New("usuário não encontrado")
	ErrBudgetNotFound = errors.New("orçamento não encontrado")
)

// Ports for the record store.
type (
	UserStore interface {
		// CreateUser inserts the user and returns its id, or ErrEmailExists.
		CreateUser(ctx context.Context, u core.User) (int64, error)
		// FindUserByEmail looks the user up by normalized email.
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
	}

	BudgetStore interface {
		CreateBudgetEntry(ctx context.Context, e core.BudgetEntry) (int64, error)
		GetBudgetEntry(ctx context.Context, id int64) (core.BudgetEntry, error)
		// ListBudgetEntries returns every entry in insertion order.
		ListBudgetEntries(ctx context.Context) ([]core.BudgetEntry, error)
		// ListBudgetEntriesByOwner returns the entries of one user in insertion order.
		ListBudgetEntriesByOwner(ctx context.Context, ownerID int64) ([]core.BudgetEntry, error)
	}

	Store interface {
		UserStore
		BudgetStore
		Ping(ctx context.Context) error
		Close() error
	}
)
