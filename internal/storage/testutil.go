package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a fully configured in-memory SQLite database for
// testing. Cleanup is registered with t.Cleanup().
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// NewTestDBFile creates a file-based SQLite database in t.TempDir() and
// returns it with its path, for tests that reopen the file.
func NewTestDBFile(t testing.TB) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}
