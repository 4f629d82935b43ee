package stytch

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client calls the Stytch API for one project.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	clock      func() time.Time

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
}

// NewClient builds a client from validated configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config:     cfg,
		baseURL:    cfg.BaseURL(),
		httpClient: http.DefaultClient,
		clock:      time.Now,
	}, nil
}

// OAuthStartURL returns the hosted login URL for the given provider.
// Visiting it sends the user through the provider's consent screen and
// back to the configured redirect URL with a one-time token.
func (c *Client) OAuthStartURL(provider string) string {
	query := url.Values{}
	query.Set("public_token", c.config.PublicToken)
	query.Set("login_redirect_url", c.config.RedirectURL)
	return c.baseURL + "/v1/public/oauth/" + url.PathEscape(provider) + "/start?" + query.Encode()
}

// UserProfile is the slice of the Stytch user record the backend keeps.
type UserProfile struct {
	Name  string
	Email string
}

// AuthenticateResult is the outcome of a successful OAuth token exchange.
type AuthenticateResult struct {
	UserID          string
	ProviderType    string
	ProviderSubject string
	SessionJWT      string
	SessionToken    string
	User            UserProfile
}

// AuthenticateOAuth exchanges a one-time OAuth token for a session.
func (c *Client) AuthenticateOAuth(ctx context.Context, token string) (AuthenticateResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AuthenticateResult{}, errors.New("oauth token is required")
	}

	var payload struct {
		UserID          string `json:"user_id"`
		ProviderType    string `json:"provider_type"`
		ProviderSubject string `json:"provider_subject"`
		SessionJWT      string `json:"session_jwt"`
		SessionToken    string `json:"session_token"`
		User            struct {
			Name struct {
				FirstName string `json:"first_name"`
				LastName  string `json:"last_name"`
			} `json:"name"`
			Emails []struct {
				Email string `json:"email"`
			} `json:"emails"`
		} `json:"user"`
	}
	body := map[string]any{
		"token":                    token,
		"session_duration_minutes": c.config.SessionMinutes,
	}
	if err := c.post(ctx, "/v1/oauth/authenticate", body, &payload); err != nil {
		return AuthenticateResult{}, err
	}
	if payload.SessionJWT == "" {
		return AuthenticateResult{}, errors.New("authenticate response missing session jwt")
	}

	result := AuthenticateResult{
		UserID:          payload.UserID,
		ProviderType:    payload.ProviderType,
		ProviderSubject: payload.ProviderSubject,
		SessionJWT:      payload.SessionJWT,
		SessionToken:    payload.SessionToken,
	}
	result.User.Name = strings.TrimSpace(payload.User.Name.FirstName + " " + payload.User.Name.LastName)
	if len(payload.User.Emails) > 0 {
		result.User.Email = payload.User.Emails[0].Email
	}
	return result, nil
}

// Session identifies an authenticated Stytch session.
type Session struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// AuthenticateSession validates a session JWT against the sessions API.
func (c *Client) AuthenticateSession(ctx context.Context, sessionJWT string) (Session, error) {
	sessionJWT = strings.TrimSpace(sessionJWT)
	if sessionJWT == "" {
		return Session{}, errors.New("session jwt is required")
	}

	var payload struct {
		Session struct {
			SessionID string `json:"session_id"`
			UserID    string `json:"user_id"`
			ExpiresAt string `json:"expires_at"`
		} `json:"session"`
	}
	body := map[string]any{"session_jwt": sessionJWT}
	if err := c.post(ctx, "/v1/sessions/authenticate", body, &payload); err != nil {
		return Session{}, err
	}
	if payload.Session.UserID == "" {
		return Session{}, errors.New("authenticate response missing session")
	}

	session := Session{
		UserID:    payload.Session.UserID,
		SessionID: payload.Session.SessionID,
	}
	if parsed, err := time.Parse(time.RFC3339, payload.Session.ExpiresAt); err == nil {
		session.ExpiresAt = parsed.UTC()
	}
	return session, nil
}

// VerifySession validates a session JWT locally when signing keys are
// cached, falling back to the sessions API on any local failure. The API
// stays authoritative; the local path only skips a network round trip.
func (c *Client) VerifySession(ctx context.Context, sessionJWT string) (Session, error) {
	if session, err := c.verifyLocal(sessionJWT); err == nil {
		return session, nil
	}
	return c.AuthenticateSession(ctx, sessionJWT)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.config.ProjectID, c.config.Secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call stytch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError surfaces the structured error Stytch returns on non-200s.
func decodeAPIError(resp *http.Response) error {
	var payload struct {
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.ErrorType == "" {
		return fmt.Errorf("stytch returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("stytch %s: %s", payload.ErrorType, payload.ErrorMessage)
}
