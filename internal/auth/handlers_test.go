package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/graphberry/graphberry/internal/storage"
	"github.com/graphberry/graphberry/internal/stytch"
)

type fakeProvider struct {
	startURL  string
	result    stytch.AuthenticateResult
	err       error
	lastToken string
}

func (f *fakeProvider) OAuthStartURL(string) string { return f.startURL }

func (f *fakeProvider) AuthenticateOAuth(_ context.Context, token string) (stytch.AuthenticateResult, error) {
	f.lastToken = token
	if f.err != nil {
		return stytch.AuthenticateResult{}, f.err
	}
	return f.result, nil
}

type fakeUserStore struct {
	records []storage.User
	err     error
}

func (f *fakeUserStore) RecordLogin(_ context.Context, record storage.User) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeUserStore) GetUser(context.Context, string) (storage.User, error) {
	return storage.User{}, storage.ErrNotFound
}

func newTestHandlers(provider *fakeProvider, users storage.UserStore) (*Handlers, *http.ServeMux) {
	handlers := NewHandlers(provider, users)
	handlers.clock = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux)
	return handlers, mux
}

func TestHandleSSORedirectsToProvider(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{startURL: "https://test.stytch.com/v1/public/oauth/google/start?public_token=tok"}
	_, mux := newTestHandlers(provider, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/sso/google", nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != provider.startURL {
		t.Fatalf("location = %q, want %q", got, provider.startURL)
	}
}

func TestHandleSSORejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, mux := newTestHandlers(&fakeProvider{startURL: "https://example.test"}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/sso/github", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleSSOMethodNotAllowed(t *testing.T) {
	t.Parallel()

	_, mux := newTestHandlers(&fakeProvider{}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/sso/google", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleCallbackRequiresToken(t *testing.T) {
	t.Parallel()

	_, mux := newTestHandlers(&fakeProvider{}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rr.Body.String(), "no authentication token provided") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestHandleCallbackRejectsFailedExchange(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{err: errors.New("stytch oauth_token_not_found: OAuth token could not be found.")}
	_, mux := newTestHandlers(provider, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/callback?token=bad-token", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(rr.Body.String(), "authentication failed") {
		t.Fatalf("body = %q", rr.Body.String())
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Fatalf("unexpected cookie %q after failed exchange", rr.Header().Get("Set-Cookie"))
	}
	if provider.lastToken != "bad-token" {
		t.Fatalf("provider token = %q", provider.lastToken)
	}
}

func TestHandleCallbackSetsSessionCookie(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{result: stytch.AuthenticateResult{
		UserID:       "user-test-1",
		ProviderType: "Google",
		SessionJWT:   "session-jwt-value",
		User:         stytch.UserProfile{Name: "Ada Lovelace", Email: "ada@example.test"},
	}}
	users := &fakeUserStore{}
	_, mux := newTestHandlers(provider, users)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/callback?token=good-token", nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != LoginLandingPath {
		t.Fatalf("location = %q, want %q", got, LoginLandingPath)
	}

	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if cookie.Name != CookieName || cookie.Value != "session-jwt-value" {
		t.Fatalf("cookie = %q=%q", cookie.Name, cookie.Value)
	}

	if len(users.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(users.records))
	}
	record := users.records[0]
	if record.ID != "user-test-1" || record.Email != "ada@example.test" || record.Provider != "Google" {
		t.Fatalf("ledger record = %+v", record)
	}
	want := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	if !record.LastLoginAt.Equal(want) {
		t.Fatalf("last login = %v, want %v", record.LastLoginAt, want)
	}
}

func TestHandleLogoutClearsCookie(t *testing.T) {
	t.Parallel()

	_, mux := newTestHandlers(&fakeProvider{}, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "session-jwt-value"})
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if got := rr.Header().Get("Location"); got != "/" {
		t.Fatalf("location = %q, want %q", got, "/")
	}
	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if cookie.Name != CookieName || cookie.Value != "" {
		t.Fatalf("cookie = %q=%q, want cleared", cookie.Name, cookie.Value)
	}
	if cookie.MaxAge >= 0 {
		t.Fatalf("cookie max age = %d, want negative", cookie.MaxAge)
	}
}

func TestHandleLogoutMethodNotAllowed(t *testing.T) {
	t.Parallel()

	_, mux := newTestHandlers(&fakeProvider{}, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleCallbackToleratesLedgerFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{result: stytch.AuthenticateResult{
		UserID:     "user-test-1",
		SessionJWT: "session-jwt-value",
	}}
	users := &fakeUserStore{err: errors.New("disk full")}
	_, mux := newTestHandlers(provider, users)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/callback?token=good-token", nil))

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusFound)
	}
	if rr.Header().Get("Set-Cookie") == "" {
		t.Fatal("expected session cookie despite ledger failure")
	}
}
