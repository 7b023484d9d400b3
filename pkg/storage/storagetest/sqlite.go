// Package storagetest opens migrated databases for tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/noticias/pkg/storage"
)

// NewSQLite returns a migrated in-memory SQLite database that is closed when
// the test ends. The pool is pinned to one connection because every new
// connection to :memory: would see an empty database.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open(storage.SQLite.DriverName(), ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}
	})

	_, err = storage.Migrate(context.Background(), db, storage.SQLite)
	require.NoError(t, err, "failed to run migrations")
	return db
}
