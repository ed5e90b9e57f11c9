package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// SessionName is the cookie holding the logged-in user.
const SessionName = "usuario"

const (
	keyUserID   = "id"
	keyUserName = "nome"
)

var ErrNoSession = errors.New("sessão ausente")

// SessionUser is what the session cookie remembers about the caller.
type SessionUser struct {
	ID   int64
	Name string
}

// SessionManager reads and writes the signed session cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager signs cookies with secret. maxAge bounds both the cookie and the signature validity.
func NewSessionManager(secret []byte, maxAge time.Duration, secure bool) *SessionManager {
	store := sessions.NewCookieStore(secret)
	store.MaxAge(int(maxAge.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return &SessionManager{store: store}
}

// Login stores u in the session cookie.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	// A tampered or expired cookie yields a fresh session and an error we can ignore here.
	s, _ := m.store.Get(r, SessionName)
	s.Values[keyUserID] = u.ID
	s.Values[keyUserName] = u.Name
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout expires the session cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	s, _ := m.store.Get(r, SessionName)
	s.Values = map[interface{}]interface{}{}
	s.Options.MaxAge = -1
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the session user, or ErrNoSession when the cookie is absent or invalid.
func (m *SessionManager) Current(r *http.Request) (SessionUser, error) {
	s, err := m.store.Get(r, SessionName)
	if err != nil || s.IsNew {
		return SessionUser{}, ErrNoSession
	}
	id, ok := s.Values[keyUserID].(int64)
	if !ok || id <= 0 {
		return SessionUser{}, ErrNoSession
	}
	name, _ := s.Values[keyUserName].(string)
	return SessionUser{ID: id, Name: name}, nil
}
