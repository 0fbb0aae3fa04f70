// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"digizone/internal/database"

	"gorm.io/gorm"
)

// Open returns a migrated SQLite database stored in the test's temp dir.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "digizone.db"))
	db, err := database.Open(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
