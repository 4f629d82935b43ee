// Package sqlite provides a SQLite-backed login ledger.
//
// It is the default on-disk store; a single file keeps deployment to one
// process with no external database to run.
package sqlite
