// Package storage defines persistence contracts for the login ledger.
//
// The interface exists so HTTP handlers and resolvers can depend on stable
// domain semantics without coupling to SQLite schema details.
package storage
