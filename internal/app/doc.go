// Package app assembles the GraphQL backend: the SQLite login ledger, the
// Stytch client, the schema, and the HTTP surface that serves them.
package app
