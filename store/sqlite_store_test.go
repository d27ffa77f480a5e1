package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// openTestDB creates an in-memory SQLite database for testing
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func freezeTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = prev })
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteStore(openTestDB(t))
	at := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	freezeTime(t, at)

	require.NoError(t, st.Upsert(ctx, "user-1", "a=1; TrainerRoadAuth=x"))

	session, err := st.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, "a=1; TrainerRoadAuth=x", session.Bundle)
	require.True(t, session.Active)
	require.True(t, session.UpdatedAt.Equal(at))
}

func TestSQLiteStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	st := NewSQLiteStore(db)

	require.NoError(t, st.Upsert(ctx, "user-1", "old=1"))
	require.NoError(t, st.Deactivate(ctx, "user-1"))
	require.NoError(t, st.Upsert(ctx, "user-1", "new=2"))

	session, err := st.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "new=2", session.Bundle)

	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sessions WHERE local_user_id = ?", "user-1").Scan(&rows))
	require.Equal(t, 1, rows)
}

func TestSQLiteStore_Deactivate(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteStore(openTestDB(t))

	require.NoError(t, st.Upsert(ctx, "user-1", "TrainerRoadAuth=x"))
	require.NoError(t, st.Deactivate(ctx, "user-1"))

	_, err := st.Get(ctx, "user-1")
	require.True(t, errors.Is(err, ErrNotFound))

	// Missing rows are a no-op
	require.NoError(t, st.Deactivate(ctx, "nobody"))
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	st := NewSQLiteStore(openTestDB(t))

	_, err := st.Get(context.Background(), "user-1")

	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteStore(openTestDB(t))

	require.NoError(t, st.Upsert(ctx, "user-1", "TrainerRoadAuth=one"))
	require.NoError(t, st.Upsert(ctx, "user-2", "TrainerRoadAuth=two"))
	require.NoError(t, st.Deactivate(ctx, "user-1"))

	session, err := st.Get(ctx, "user-2")
	require.NoError(t, err)
	require.Equal(t, "TrainerRoadAuth=two", session.Bundle)
}

func TestOpenSQLite_File(t *testing.T) {
	path := t.TempDir() + "/nested/coachsync.db"

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewSQLiteStore(db).Upsert(context.Background(), "user-1", "a=1"))
}
