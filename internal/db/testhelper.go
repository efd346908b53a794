package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite opens a migrated datashelf store in t.TempDir() and
// returns the write/read pool pair. Closing is registered on t.Cleanup;
// tests that never exercise the pool split can use writeDB for both
// sides.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "datashelf.sqlite"), 2)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return writeDB, readDB
}
