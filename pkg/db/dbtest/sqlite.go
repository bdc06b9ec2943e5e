// Package dbtest opens isolated in-memory sqlite databases with the POS schema for tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a fresh database named after the test so parallel packages never share state.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := migrate.AutoMigrateModels(conn); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.NewFromGorm(Open(t))
}
