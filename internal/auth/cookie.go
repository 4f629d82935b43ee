package auth

import (
	"net/http"
	"strings"
)

// CookieName is the canonical session cookie name.
const CookieName = "session"

// ReadCookie returns the trimmed session cookie value when present.
func ReadCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// WriteCookie sets the session cookie for the current request context.
func WriteCookie(w http.ResponseWriter, r *http.Request, sessionJWT string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    strings.TrimSpace(sessionJWT),
		Path:     "/",
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie for the current request context.
func ClearCookie(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
