package testutil

import (
	"path/filepath"
	"testing"

	"go-markboard/internal/model"
	"go-markboard/pkg/config"
	"go-markboard/pkg/db"

	"gorm.io/gorm"
)

// NewTestDB opens a migrated SQLite database in the test's temp dir.
// The connection is closed when the test completes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "markboard.db") + "?_foreign_keys=on&_busy_timeout=5000"
	gdb, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t *testing.T, gdb *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "x"}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}
