package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/soundcheck/internal/shared"
)

// TokenKey is the settings key holding the access token.
const TokenKey = "access_token"

// SQLiteTokenStore implements [TokenStore] on the settings table of the client database.
type SQLiteTokenStore struct {
	db *sql.DB
}

// NewSQLiteTokenStore creates a new [SQLiteTokenStore] with the given database connection.
//
// The settings table must already exist (see [shared.RunMigrations]).
func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

// Get reads the stored token. A missing row or an empty value both mean no token.
func (s *SQLiteTokenStore) Get(ctx context.Context) (string, error) {
	query := `SELECT value FROM settings WHERE key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, TokenKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", shared.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to query token: %w", err)
	}

	if value == "" {
		return "", shared.ErrNoToken
	}
	return value, nil
}

// Set stores token, replacing any previous value.
func (s *SQLiteTokenStore) Set(ctx context.Context, token string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, TokenKey, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear deletes the stored token. Clearing an empty store is not an error.
func (s *SQLiteTokenStore) Clear(ctx context.Context) error {
	query := `DELETE FROM settings WHERE key = ?`

	if _, err := s.db.ExecContext(ctx, query, TokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
