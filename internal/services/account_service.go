package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"orcamentos/internal/core"
	applog "orcamentos/internal/log"
	"orcamentos/internal/store"
)

// ErrInvalidCredentials is returned for any login mismatch. The message is shown to users as is.
var ErrInvalidCredentials = errors.New("Credenciais inválidas")

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// AccountService handles registration and login.
type AccountService struct {
	users  store.UserStore
	hasher PasswordHasher

	// dummyHash is verified against when the email is unknown so both paths cost the same.
	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users store.UserStore, hasher PasswordHasher) *AccountService {
	return &AccountService{users: users, hasher: hasher}
}

// Register validates and stores a new user, returning its id.
func (s *AccountService) Register(ctx context.Context, reg core.Registration) (int64, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, core.User{
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return 0, err
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogUserRegistered(ctx, id)
	return id, nil
}

// Login returns the user whose email and password match, or ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.User, error) {
	email = core.NormalizeEmail(email)
	if email == "" || password == "" {
		return core.User{}, ErrInvalidCredentials
	}

	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.verifyDummy(password)
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return core.User{}, fmt.Errorf("verify password for user %d: %w", u.ID, err)
	}
	if !ok {
		applog.FromContext(ctx).WarnContext(ctx, "Login rejected",
			applog.FieldUserID, u.ID,
			applog.FieldOperation, applog.OpLogin)
		return core.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *AccountService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.users.GetUser(ctx, id)
}
