package store

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := NewSQLiteDB(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewSQLiteDB_AppliesSchemaAndMigrations(t *testing.T) {
	db := newTestDB(t)

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
	}

	settings, err := db.ListSettings()
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(settings) != len(defaultSettings) {
		t.Errorf("expected %d seeded settings, got %d", len(defaultSettings), len(settings))
	}
}

func TestNewSQLiteDB_MigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reopen.db")

	db1, err := NewSQLiteDB(dsn)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db1.Close()

	db2, err := NewSQLiteDB(dsn)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db2.Close()

	settings, err := db2.ListSettings()
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(settings) != len(defaultSettings) {
		t.Errorf("expected settings not to be re-seeded with duplicates, got %d rows", len(settings))
	}
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	db := newTestDB(t)

	err := db.RunInTx(func(txDB *DB) error {
		_, err := txDB.Exec(`INSERT INTO artists (id, name) VALUES ('a1', 'Test Artist')`)
		return err
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	var name string
	if err := db.Get(&name, "SELECT name FROM artists WHERE id = 'a1'"); err != nil {
		t.Fatalf("expected committed row, got error: %v", err)
	}
	if name != "Test Artist" {
		t.Errorf("name = %q, want %q", name, "Test Artist")
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)

	err := db.RunInTx(func(txDB *DB) error {
		if _, err := txDB.Exec(`INSERT INTO artists (id, name) VALUES ('a2', 'Rolled Back')`); err != nil {
			return err
		}
		return os.ErrInvalid
	})
	if err == nil {
		t.Fatal("expected RunInTx to return the callback's error")
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM artists WHERE id = 'a2'"); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to discard the insert, found %d rows", count)
	}
}
