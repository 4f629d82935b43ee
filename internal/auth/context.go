package auth

import (
	"context"

	"github.com/graphberry/graphberry/internal/stytch"
)

// contextKey stores session values in context.
type contextKey string

// sessionContextKey stores the verified session in context.
const sessionContextKey contextKey = "graphberry-session"

// WithSession stores the verified session in context.
func WithSession(ctx context.Context, session stytch.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the verified session stored in context.
func SessionFromContext(ctx context.Context) (stytch.Session, bool) {
	if ctx == nil {
		return stytch.Session{}, false
	}
	session, ok := ctx.Value(sessionContextKey).(stytch.Session)
	return session, ok
}
