package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/graphberry/graphberry/internal/platform/errors"
	"github.com/graphberry/graphberry/internal/platform/httpx"
	"github.com/graphberry/graphberry/internal/stytch"
)

// Identity assigned when enforcement is disabled for local development.
const (
	AnonymousUserID    = "anonymous"
	AnonymousSessionID = "none"
)

// Verifier validates a session credential and resolves its identity.
type Verifier interface {
	VerifySession(ctx context.Context, sessionJWT string) (stytch.Session, error)
}

var _ Verifier = (*stytch.Client)(nil)

// TokenFromRequest extracts the session credential from the request,
// preferring the session cookie over the Authorization header. The header
// is accepted with or without a Bearer prefix.
func TokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	if value, ok := ReadCookie(r); ok {
		return value, true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	token := strings.TrimSpace(header)
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireSession verifies the request credential and stores the resolved
// session in the request context. When enforce is false every request
// proceeds under the anonymous identity instead.
func RequireSession(verifier Verifier, enforce bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforce {
				session := stytch.Session{UserID: AnonymousUserID, SessionID: AnonymousSessionID}
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
				return
			}
			if verifier == nil {
				httpx.WriteError(w, apperrors.E(apperrors.KindUnavailable, "session verifier is not configured"))
				return
			}
			token, ok := TokenFromRequest(r)
			if !ok {
				httpx.WriteError(w, apperrors.E(apperrors.KindUnauthorized, "authentication required"))
				return
			}
			session, err := verifier.VerifySession(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, apperrors.E(apperrors.KindUnauthorized, fmt.Sprintf("invalid session: %v", err)))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
