package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/graphberry/graphberry/internal/platform/storage/sqlitemigrate"
	"github.com/graphberry/graphberry/internal/storage"
	"github.com/graphberry/graphberry/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements the login ledger over SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.UserStore = (*Store)(nil)

// DB returns the underlying sql.DB instance.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens a SQLite ledger at the provided path and applies bundled
// migrations, keeping startup and schema evolution in one place.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordLogin upserts a ledger row for one completed login. The first
// login timestamp is fixed on insert; later logins bump the counter and
// refresh the profile fields.
func (s *Store) RecordLogin(ctx context.Context, record storage.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (
	id, email, name, provider, first_login_at, last_login_at, logins
) VALUES (?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(id) DO UPDATE SET
	email = excluded.email,
	name = excluded.name,
	provider = excluded.provider,
	last_login_at = excluded.last_login_at,
	logins = users.logins + 1
`,
		record.ID,
		record.Email,
		record.Name,
		record.Provider,
		toMillis(record.LastLoginAt),
		toMillis(record.LastLoginAt),
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// GetUser fetches a ledger row by the Stytch user id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.User{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.User{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, name, provider, first_login_at, last_login_at, logins
FROM users
WHERE id = ?
`, userID)

	var rec storage.User
	var firstLoginAt int64
	var lastLoginAt int64
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.Provider,
		&firstLoginAt,
		&lastLoginAt,
		&rec.Logins,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("get user: %w", err)
	}
	rec.FirstLoginAt = fromMillis(firstLoginAt)
	rec.LastLoginAt = fromMillis(lastLoginAt)
	return rec, nil
}
