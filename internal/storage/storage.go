package storage

import (
	"context"
	"time"

	"github.com/graphberry/graphberry/internal/platform/errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.E(errors.KindNotFound, "record not found")

// User is one row of the login ledger, keyed by the Stytch user id.
type User struct {
	ID           string
	Email        string
	Name         string
	Provider     string
	FirstLoginAt time.Time
	LastLoginAt  time.Time
	Logins       int64
}

// UserStore persists login ledger records.
type UserStore interface {
	RecordLogin(ctx context.Context, record User) error
	GetUser(ctx context.Context, userID string) (User, error)
}
