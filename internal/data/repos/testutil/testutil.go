package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rhizomelab/rhizome-backend/internal/data/db"
	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/urnutil"
)

// DB opens a throwaway sqlite database for one test, migrated to the full
// schema. A file-backed DB (not :memory:) so concurrent connections in
// get-or-create races see the same store.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rhizome_test.db")
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_fk=1", path)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// Tx begins a transaction that is rolled back when the test ends, so tests
// sharing a DB never leak rows into each other.
func Tx(t *testing.T, gdb *gorm.DB) *gorm.DB {
	t.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

// Logger returns a dev-mode logger for test wiring.
func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// Ctx returns a context that expires with a generous test deadline.
func Ctx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SeedDict inserts a dictionary row directly and returns it.
func SeedDict(t *testing.T, gdb *gorm.DB, category, val string) *types.SysDict {
	t.Helper()
	now := time.Now().UTC()
	entry := &types.SysDict{Category: category, Val: val, CreatedAt: now, ModifiedAt: now}
	if err := gdb.Create(entry).Error; err != nil {
		t.Fatalf("seed dict %s/%s: %v", category, val, err)
	}
	return entry
}

// SeedOrigin inserts an origin with a fresh URN for the given dtype.
func SeedOrigin(t *testing.T, gdb *gorm.DB, srcSysID, dtypeID int64) *types.OriginData {
	t.Helper()
	now := time.Now().UTC()
	origin := &types.OriginData{
		URN:        urnutil.New("doc"),
		SrcSysID:   srcSysID,
		DtypeID:    dtypeID,
		Props:      []byte(`{}`),
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := gdb.Create(origin).Error; err != nil {
		t.Fatalf("seed origin: %v", err)
	}
	return origin
}

// SeedRevision inserts a bare revision for an origin without touching the
// origin's current-revision pointer.
func SeedRevision(t *testing.T, gdb *gorm.DB, originID, editorID int64, title string) *types.Revision {
	t.Helper()
	now := time.Now().UTC()
	rev := &types.Revision{
		DataID:     originID,
		Title:      title,
		EditorID:   editorID,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := gdb.Create(rev).Error; err != nil {
		t.Fatalf("seed revision: %v", err)
	}
	return rev
}
