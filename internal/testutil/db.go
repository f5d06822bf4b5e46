// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"testing"

	"invoicing-backend/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with all tables migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache sqlite locks whole tables, so tests run on a single connection.
	// Goroutines in "concurrent" tests therefore run one transaction at a time and
	// sqlite ignores FOR UPDATE; the stale-row path is covered by calling
	// ledger.Reserve with an outdated item and by committing between the unlocked
	// read and the lock in invoice tests.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "migrate")
	return db
}
