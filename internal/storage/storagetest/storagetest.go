// Package storagetest opens a migrated SQLite-backed store for tests.
package storagetest

import (
	"path/filepath"
	"testing"

	"callgate/backend/internal/storage"

	"github.com/stretchr/testify/require"
)

// New returns a store backed by a fresh SQLite file in t's temp dir.
func New(t testing.TB) *storage.Service {
	t.Helper()

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "callgate.db") + "?_pragma=busy_timeout(5000)"
	db, err := storage.Open(dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, storage.Migrate(db))
	return storage.NewStorageService(db)
}
