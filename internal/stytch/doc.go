// Package stytch is a minimal client for the Stytch consumer API.
//
// It covers the three surfaces the backend needs: the hosted OAuth start
// URL, the OAuth token exchange, and session validation. Session JWTs are
// checked locally against the project JWKS when possible, with the sessions
// API as the authoritative fallback.
package stytch
