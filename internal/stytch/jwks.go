package stytch

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// errNoSigningKeys marks the cold-cache case so VerifySession can fall
// back to the sessions API without treating it as a bad token.
var errNoSigningKeys = errors.New("no signing keys cached")

// sessionClaims mirrors the claims Stytch places in session JWTs. The
// session id lives in a namespaced custom claim.
type sessionClaims struct {
	jwt.RegisteredClaims
	Session struct {
		ID string `json:"id"`
	} `json:"https://stytch.com/session"`
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// RefreshKeys fetches the project JWKS and replaces the cached signing keys.
func (c *Client) RefreshKeys(ctx context.Context) error {
	endpoint := c.baseURL + "/v1/sessions/jwks/" + url.PathEscape(c.config.ProjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build jwks request: %w", err)
	}
	req.SetBasicAuth(c.config.ProjectID, c.config.Secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	var payload struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, key := range payload.Keys {
		if !strings.EqualFold(key.Kty, "RSA") {
			continue
		}
		parsed, err := parseRSAKey(key)
		if err != nil {
			return fmt.Errorf("parse jwks key %s: %w", key.Kid, err)
		}
		keys[key.Kid] = parsed
	}
	if len(keys) == 0 {
		return errors.New("jwks contains no usable keys")
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()
	return nil
}

// StartKeyRefresh re-fetches the JWKS on an interval until ctx ends.
func (c *Client) StartKeyRefresh(ctx context.Context, interval time.Duration) {
	if c == nil || interval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.RefreshKeys(ctx); err != nil {
					log.Printf("refresh stytch jwks: %v", err)
				}
			}
		}
	}()
}

// verifyLocal validates a session JWT using cached signing keys only.
func (c *Client) verifyLocal(sessionJWT string) (Session, error) {
	sessionJWT = strings.TrimSpace(sessionJWT)
	if sessionJWT == "" {
		return Session{}, errors.New("session jwt is required")
	}
	if c.keyCount() == 0 {
		return Session{}, errNoSigningKeys
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(sessionJWT, &parsed, c.signingKey,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Session{}, mapJWTError(err)
	}

	if parsed.Issuer != "stytch.com/"+c.config.ProjectID {
		return Session{}, errors.New("session jwt issuer mismatch")
	}
	if !audienceContains(parsed.Audience, c.config.ProjectID) {
		return Session{}, errors.New("session jwt audience mismatch")
	}
	if parsed.ExpiresAt == nil {
		return Session{}, errors.New("session jwt exp is required")
	}

	now := c.clock().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Session{}, errors.New("session jwt is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Session{}, errors.New("session jwt not active yet")
	}

	if strings.TrimSpace(parsed.Subject) == "" {
		return Session{}, errors.New("session jwt sub is required")
	}
	if strings.TrimSpace(parsed.Session.ID) == "" {
		return Session{}, errors.New("session jwt session claim is required")
	}

	return Session{UserID: parsed.Subject, SessionID: parsed.Session.ID, ExpiresAt: exp}, nil
}

// signingKey resolves the cached RSA key for the token's kid header.
func (c *Client) signingKey(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token kid is required")
	}
	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (c *Client) keyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// mapJWTError translates jwt library errors into stable messages.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.New("session jwt is malformed")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.New("session jwt signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.New("session jwt cannot be verified")
	default:
		return fmt.Errorf("parse session jwt: %w", err)
	}
}

func audienceContains(audience jwt.ClaimStrings, expected string) bool {
	for _, value := range audience {
		if value == expected {
			return true
		}
	}
	return false
}

func parseRSAKey(key jsonWebKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	exponent := 0
	for _, b := range eBytes {
		exponent = exponent<<8 | int(b)
	}
	if exponent == 0 {
		return nil, errors.New("exponent is zero")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exponent}, nil
}
