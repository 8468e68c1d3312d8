package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cesargomez89/catalogd/internal/constants"
)

type migration struct {
	up          func(*sqlx.Tx) error
	description string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "Seed default settings rows",
		up: func(tx *sqlx.Tx) error {
			return seedDefaultSettings(tx)
		},
	},
}

// dbOps is the subset of *sqlx.DB / *sqlx.Tx that DB needs. Abstracting
// over it lets the same DB type run against either the pooled connection
// or an active transaction.
type dbOps interface {
	Rebind(query string) string
	BindNamed(query string, arg interface{}) (string, []interface{}, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Queryx(query string, args ...interface{}) (*sqlx.Rows, error)
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	NamedQuery(query string, arg interface{}) (*sqlx.Rows, error)
	NamedExec(query string, arg interface{}) (sql.Result, error)
}

// DB wraps a SQLite connection (or, inside RunInTx, an active
// transaction) behind the dbOps interface. DB issues no COMMIT of its
// own: calls on the top-level DB run in SQLite's autocommit mode and take
// effect at once, while calls on the DB handed to a RunInTx callback
// commit together when the callback returns nil.
type DB struct {
	dbOps
	root *sqlx.DB
}

// NewSQLiteDB opens dsn in WAL mode with a single writer connection
// (SQLite allows only one concurrent writer; serializing at the
// connection-pool level turns contention into in-process queueing
// instead of SQLITE_BUSY errors at the driver level), applies the base
// schema, and runs any pending migrations.
func NewSQLiteDB(dsn string) (*DB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += fmt.Sprintf(
		"_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		constants.BusyTimeout.Milliseconds(),
	)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{dbOps: db, root: db}, nil
}

// RunInTx runs fn within a transaction, yielding a *DB that transparently
// executes operations over the active transaction instead of the
// connection pool. Callers decide the checkpoint boundary; RunInTx
// itself never partially commits.
func (db *DB) RunInTx(fn func(txDB *DB) error) error {
	if db.root == nil {
		// Already inside a transaction: nested RunInTx just runs fn over
		// the same transaction rather than opening a new one (SQLite has
		// no true nested transactions).
		return fn(db)
	}

	tx, err := db.root.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is best-effort once commit is attempted

	txDB := &DB{dbOps: tx, root: nil}

	if err := fn(txDB); err != nil {
		return err
	}

	if err := commitWithBusyRetry(tx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// commitWithBusyRetry retries a commit that fails with SQLITE_BUSY using
// constants.DatabaseBusyBackoff's schedule: SQLite permits retrying
// COMMIT itself after a busy error, without re-running the transaction's
// statements, since the transaction is not rolled back by a failed
// commit attempt.
func commitWithBusyRetry(tx *sqlx.Tx) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = tx.Commit()
		if err == nil || !isBusyErr(err) || attempt >= constants.DatabaseBusyRetry {
			return err
		}
		time.Sleep(constants.DatabaseBusyBackoff[attempt])
	}
}

func isBusyErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func runMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}

		if err := m.up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.description, err)
		}

		if err := recordMigration(tx, m.version, m.description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

func isMigrationApplied(db *sqlx.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(tx *sqlx.Tx, version int, description string) error {
	_, err := tx.Exec("INSERT INTO schema_migrations (version, description) VALUES (?, ?)", version, description)
	return err
}

func (db *DB) Close() error {
	if db.root != nil {
		return db.root.Close()
	}
	return nil
}
