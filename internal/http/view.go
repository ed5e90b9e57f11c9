package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"orcamentos/internal/auth"
	"orcamentos/internal/core"
)

const (
	themeCookie    = "theme"
	fontSizeCookie = "fontSize"
	prefsMaxAge    = 365 * 24 * time.Hour
)

// ViewContext is the per-request state every page and partial renders with.
type ViewContext struct {
	User  *auth.SessionUser
	Prefs core.Preferences
}

func (v ViewContext) LoggedIn() bool {
	return v.User != nil
}

type viewContextKey struct{}

func viewFromContext(ctx context.Context) ViewContext {
	if v, ok := ctx.Value(viewContextKey{}).(ViewContext); ok {
		return v
	}
	return ViewContext{Prefs: core.DefaultPreferences()}
}

// viewMiddleware reads the session and preference cookies once per request.
func (s *Server) viewMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view := ViewContext{Prefs: readPreferences(r)}
		ctx := r.Context()
		if u, err := s.sessions.Current(r); err == nil {
			view.User = &u
			ctx = auth.ContextWithUser(ctx, u)
		}
		ctx = context.WithValue(ctx, viewContextKey{}, view)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// readPreferences falls back to the defaults for missing or unreadable cookies.
func readPreferences(r *http.Request) core.Preferences {
	prefs := core.DefaultPreferences()
	if c, err := r.Cookie(themeCookie); err == nil {
		prefs.Theme = core.ParseTheme(c.Value)
	}
	if c, err := r.Cookie(fontSizeCookie); err == nil {
		prefs.FontSize = core.ParseFontSize(c.Value)
	}
	return prefs
}

func (s *Server) writePreferences(w http.ResponseWriter, prefs core.Preferences) {
	for name, value := range map[string]string{
		themeCookie:    string(prefs.Theme),
		fontSizeCookie: strconv.Itoa(prefs.FontSize),
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int(prefsMaxAge.Seconds()),
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
