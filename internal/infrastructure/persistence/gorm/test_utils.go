package gorm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A pooled second connection would see its own empty in-memory
	// database, so pin the pool to one connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&SearchResultModel{},
		&MovieInfoModel{},
		&TVInfoModel{},
		&DownloadAttemptModel{},
	)
	require.NoError(t, err)

	return db
}

// CleanupDB cleans up the test database
func CleanupDB(t *testing.T, db *gorm.DB) {
	err := db.Migrator().DropTable(
		&SearchResultModel{},
		&MovieInfoModel{},
		&TVInfoModel{},
		&DownloadAttemptModel{},
	)
	require.NoError(t, err)
}
