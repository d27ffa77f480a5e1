package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema mirrors the SQLite layout
const postgresSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	local_user_id TEXT PRIMARY KEY,
	cookie_bundle TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// OpenPostgres connects a pool to url and initializes the schema
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if err := InitPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// InitPostgres creates the sessions table
func InitPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// PostgresStore provides Postgres-backed persistence for sessions
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get retrieves the active session of a user or ErrNotFound
func (s *PostgresStore) Get(ctx context.Context, userID string) (Session, error) {
	const query = `SELECT local_user_id, cookie_bundle, is_active, updated_at
		FROM sessions WHERE local_user_id=$1 AND is_active`

	var session Session
	err := s.pool.QueryRow(ctx, query, userID).Scan(&session.UserID, &session.Bundle, &session.Active, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	return session, nil
}

// Upsert stores the bundle as the user's active session
func (s *PostgresStore) Upsert(ctx context.Context, userID, bundle string) error {
	const query = `INSERT INTO sessions (local_user_id, cookie_bundle, is_active, updated_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (local_user_id) DO UPDATE SET cookie_bundle=EXCLUDED.cookie_bundle, is_active=TRUE, updated_at=EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query, userID, bundle, timeNow()); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Deactivate marks the user's session inactive. A missing row is not an error.
func (s *PostgresStore) Deactivate(ctx context.Context, userID string) error {
	const query = `UPDATE sessions SET is_active=FALSE, updated_at=$2 WHERE local_user_id=$1`
	if _, err := s.pool.Exec(ctx, query, userID, timeNow()); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}
