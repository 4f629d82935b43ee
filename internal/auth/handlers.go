package auth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/graphberry/graphberry/internal/platform/errors"
	"github.com/graphberry/graphberry/internal/platform/httpx"
	"github.com/graphberry/graphberry/internal/storage"
	"github.com/graphberry/graphberry/internal/stytch"
)

// GoogleProvider is the only SSO provider wired today.
const GoogleProvider = "google"

// LoginLandingPath is where the browser lands after a completed login.
const LoginLandingPath = "/graphql"

// Provider starts hosted OAuth flows and redeems their one-time tokens.
type Provider interface {
	OAuthStartURL(provider string) string
	AuthenticateOAuth(ctx context.Context, token string) (stytch.AuthenticateResult, error)
}

var _ Provider = (*stytch.Client)(nil)

// Handlers serves the login endpoints of the OAuth flow.
type Handlers struct {
	provider Provider
	users    storage.UserStore
	clock    func() time.Time
}

// NewHandlers builds login handlers around a provider and the login ledger.
func NewHandlers(provider Provider, users storage.UserStore) *Handlers {
	return &Handlers{provider: provider, users: users, clock: time.Now}
}

// RegisterRoutes registers login HTTP endpoints on the provided mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/auth/sso/", h.handleSSO)
	mux.HandleFunc("/auth/callback", h.handleCallback)
	mux.HandleFunc("/auth/logout", h.handleLogout)
}

func (h *Handlers) handleSSO(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	provider := strings.TrimPrefix(r.URL.Path, "/auth/sso/")
	if provider != GoogleProvider {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, h.provider.OAuthStartURL(provider), http.StatusFound)
}

// handleCallback redeems the one-time token Stytch appends to the redirect
// and installs the session cookie.
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "no authentication token provided"))
		return
	}

	result, err := h.provider.AuthenticateOAuth(r.Context(), token)
	if err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindUnauthorized, fmt.Sprintf("authentication failed: %v", err)))
		return
	}

	h.recordLogin(r.Context(), result)

	WriteCookie(w, r, result.SessionJWT)
	http.Redirect(w, r, LoginLandingPath, http.StatusFound)
}

// handleLogout drops the session cookie. The Stytch session itself expires
// on the provider's schedule.
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ClearCookie(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

// recordLogin appends to the ledger without blocking the login on storage
// trouble. The session cookie, not the ledger, is the source of identity.
func (h *Handlers) recordLogin(ctx context.Context, result stytch.AuthenticateResult) {
	if h.users == nil {
		return
	}
	record := storage.User{
		ID:          result.UserID,
		Email:       result.User.Email,
		Name:        result.User.Name,
		Provider:    result.ProviderType,
		LastLoginAt: h.clock().UTC(),
	}
	if err := h.users.RecordLogin(ctx, record); err != nil {
		log.Printf("record login for %s: %v", result.UserID, err)
	}
}
