package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the SQLite database at path and initializes the schema.
// A leading ~ is expanded to the home directory.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand sqlite path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(expanded), 0700); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		path = expanded
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := InitSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitSQLite creates the sessions table.
// PRE: db is a valid database connection
// POST: sessions table exists
func InitSQLite(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		local_user_id TEXT PRIMARY KEY,
		cookie_bundle TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// SQLiteStore implements the session store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the active session of a user.
// PRE: userID is non-empty
// POST: Returns the session or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, userID string) (Session, error) {
	query := "SELECT local_user_id, cookie_bundle, is_active, updated_at FROM sessions WHERE local_user_id = ? AND is_active = 1"
	row := s.db.QueryRowContext(ctx, query, userID)

	var session Session
	var active int
	var updatedAt string
	if err := row.Scan(&session.UserID, &session.Bundle, &active, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	session.Active = active == 1

	parsed, err := time.Parse(timestampLayout, updatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse updated_at %q: %w", updatedAt, err)
	}
	session.UpdatedAt = parsed
	return session, nil
}

// Upsert stores the bundle as the user's active session, replacing any previous one.
// POST: exactly one row for userID, active
func (s *SQLiteStore) Upsert(ctx context.Context, userID, bundle string) error {
	query := `INSERT INTO sessions (local_user_id, cookie_bundle, is_active, updated_at) VALUES (?, ?, 1, ?)
	ON CONFLICT(local_user_id) DO UPDATE SET cookie_bundle=excluded.cookie_bundle, is_active=1, updated_at=excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, userID, bundle, timeNow().Format(timestampLayout)); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Deactivate marks the user's session inactive. A missing row is not an error.
func (s *SQLiteStore) Deactivate(ctx context.Context, userID string) error {
	query := "UPDATE sessions SET is_active = 0, updated_at = ? WHERE local_user_id = ?"
	if _, err := s.db.ExecContext(ctx, query, timeNow().Format(timestampLayout), userID); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}
