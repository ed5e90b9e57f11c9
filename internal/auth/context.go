package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "session_user"

// ContextWithUser adds the session user to the context.
func ContextWithUser(ctx context.Context, u SessionUser) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the session user, if the request carried one.
func UserFromContext(ctx context.Context) (SessionUser, bool) {
	u, ok := ctx.Value(userContextKey).(SessionUser)
	return u, ok
}
