package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func roundTrip(t *testing.T, m *SessionManager, cookies []*http.Cookie) (SessionUser, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return m.Current(req)
}

func TestSessionLoginAndCurrent(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)

	rr := httptest.NewRecorder()
	if err := m.Login(rr, httptest.NewRequest(http.MethodPost, "/login", nil), SessionUser{ID: 7, Name: "Ana"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionName {
		t.Fatalf("expected one %q cookie, got %v", SessionName, cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("session cookie must be HttpOnly and SameSite=Lax: %+v", cookies[0])
	}

	u, err := roundTrip(t, m, cookies)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if u.ID != 7 || u.Name != "Ana" {
		t.Fatalf("unexpected session user: %+v", u)
	}
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)
	other := NewSessionManager([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, false)

	rr := httptest.NewRecorder()
	if err := other.Login(rr, httptest.NewRequest(http.MethodPost, "/", nil), SessionUser{ID: 1}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := roundTrip(t, m, rr.Result().Cookies()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for a cookie signed with another key, got %v", err)
	}

	forged := &http.Cookie{Name: SessionName, Value: "id=1"}
	if _, err := roundTrip(t, m, []*http.Cookie{forged}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession for a forged cookie, got %v", err)
	}
}

func TestSessionNoCookie(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, false)
	if _, err := roundTrip(t, m, nil); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSessionLogoutExpiresCookie(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, true)

	rr := httptest.NewRecorder()
	if err := m.Logout(rr, httptest.NewRequest(http.MethodPost, "/logout", nil)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookies)
	}
	if !cookies[0].Secure {
		t.Fatalf("secure flag should follow configuration")
	}
}

func TestUserContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatalf("empty context should carry no user")
	}
	ctx := ContextWithUser(context.Background(), SessionUser{ID: 3, Name: "Bia"})
	if u, ok := UserFromContext(ctx); !ok || u.ID != 3 {
		t.Fatalf("unexpected user from context: %+v %v", u, ok)
	}
}
