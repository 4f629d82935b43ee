// Package auth implements the Stytch-hosted login flow and session
// enforcement for the GraphQL surface.
//
// Browsers carry the session JWT in a cookie; API clients may send it as a
// bearer token instead. Both paths resolve to the same session identity.
package auth
