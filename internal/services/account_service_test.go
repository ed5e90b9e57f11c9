package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"orcamentos/internal/auth"
	"orcamentos/internal/core"
	"orcamentos/internal/store"
	"orcamentos/internal/store/memory"
)

func newTestAccountService() (*AccountService, *memory.Store) {
	st := memory.New()
	hasher := auth.NewHasher(auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	return NewAccountService(st, hasher), st
}

func TestAccountService_Register(t *testing.T) {
	svc, st := newTestAccountService()
	ctx := context.Background()

	id, err := svc.Register(ctx, core.Registration{Name: " Ana ", Email: " Ana@Example.com ", Password: "segredo"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected a positive id, got %d", id)
	}

	u, err := st.FindUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if u.Name != "Ana" || u.Email != "ana@example.com" {
		t.Fatalf("stored user not normalized: %+v", u)
	}
	if u.PasswordHash == "segredo" || !strings.HasPrefix(u.PasswordHash, "$argon2id$") {
		t.Fatalf("password must be stored as an argon2id hash, got %q", u.PasswordHash)
	}
}

func TestAccountService_RegisterDuplicateEmail(t *testing.T) {
	svc, st := newTestAccountService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, core.Registration{Name: "Ana", Email: "ana@example.com", Password: "segredo"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, core.Registration{Name: "Outra", Email: "ANA@example.com", Password: "outrasenha"})
	if !errors.Is(err, store.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	if _, err := st.GetUser(ctx, 2); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("duplicate registration must not create a row, got %v", err)
	}
}

func TestAccountService_RegisterValidation(t *testing.T) {
	svc, _ := newTestAccountService()

	_, err := svc.Register(context.Background(), core.Registration{Name: "", Email: "nope", Password: "123"})
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	for _, field := range []string{"nome", "email", "senha"} {
		if _, ok := verrs[field]; !ok {
			t.Errorf("expected an error for %q, got %v", field, verrs)
		}
	}
}

func TestAccountService_Login(t *testing.T) {
	svc, _ := newTestAccountService()
	ctx := context.Background()

	id, err := svc.Register(ctx, core.Registration{Name: "Ana", Email: "ana@example.com", Password: "segredo"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := svc.Login(ctx, " ANA@example.com", "segredo")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.ID != id || u.Name != "Ana" {
		t.Fatalf("unexpected user: %+v", u)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ana@example.com", "errada"},
		{"unknown email", "bia@example.com", "segredo"},
		{"empty email", "", "segredo"},
		{"empty password", "ana@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAccountService_LoginCorruptHash(t *testing.T) {
	svc, st := newTestAccountService()
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, core.User{Name: "X", Email: "x@example.com", PasswordHash: "plain"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := svc.Login(ctx, "x@example.com", "plain")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("a corrupt stored hash is an internal error, got %v", err)
	}
	if !errors.Is(err, auth.ErrInvalidHash) {
		t.Fatalf("expected wrapped ErrInvalidHash, got %v", err)
	}
}
