// Package graph defines the GraphQL schema served by the backend.
//
// The schema stays intentionally small: two static acknowledgement
// operations, build metadata, and a viewer lookup backed by the login
// ledger.
package graph
