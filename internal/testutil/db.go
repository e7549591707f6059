package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/bazaar/internal/client/migrations"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// OpenCache returns a migrated in-memory cache database closed with t.
// A single connection keeps every query on the same in-memory database.
func OpenCache(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}
