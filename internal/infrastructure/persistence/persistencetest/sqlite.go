// Package persistencetest opens throwaway billing databases for tests
package persistencetest

import (
	"testing"

	"github.com/meterbill/backend/internal/infrastructure/persistence"
	"github.com/meterbill/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB returns an in-memory SQLite database with the billing schema.
// The pool is capped at one connection so every query sees the same
// in-memory database; transactions are therefore serialized.
func NewSQLiteDB(t testing.TB, opts ...persistence.Option) *gorm.DB {
	t.Helper()

	database, err := persistence.Open(sqlite.Open(":memory:"), opts...)
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.DB.AutoMigrate(models.All()...))
	return database.DB
}
