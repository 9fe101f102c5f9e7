// Package sqlite implements repository.DonationRepository on SQLite.
//
// It is the default storage backend: a single file (or ":memory:" in tests),
// no server to run. modernc.org/sqlite is a pure Go driver, so the binary
// builds without cgo.
package sqlite

import (
	"database/sql"
	"fmt"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements
// repository.DonationRepository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/donations.db"   → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests; lost on close)
//
// sql.Open does not connect; Ping forces the first connection so a bad path
// fails here rather than on the first request.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a donation is being written.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start. Columns added
// after the first release go through addColumnIfNotExists.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS donations (
			id                 TEXT PRIMARY KEY,
			stripe_card_token  TEXT NOT NULL DEFAULT '',
			stripe_customer_id TEXT NOT NULL DEFAULT '',
			package            TEXT NOT NULL DEFAULT '',
			amount             INTEGER NOT NULL DEFAULT 0,
			vat_id             TEXT NOT NULL DEFAULT '',
			add_vat            BOOLEAN NOT NULL DEFAULT 0,
			name               TEXT NOT NULL DEFAULT '',
			email              TEXT NOT NULL DEFAULT '',
			address            TEXT NOT NULL DEFAULT '',
			zip                TEXT NOT NULL DEFAULT '',
			city               TEXT NOT NULL DEFAULT '',
			state              TEXT NOT NULL DEFAULT '',
			country            TEXT NOT NULL DEFAULT '',
			twitter_handle     TEXT NOT NULL DEFAULT '',
			github_handle      TEXT NOT NULL DEFAULT '',
			homepage           TEXT NOT NULL DEFAULT '',
			display            BOOLEAN NOT NULL DEFAULT 1,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			comment            TEXT NOT NULL DEFAULT '',
			gravatar_url       TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_donations_created_at ON donations(created_at);
		CREATE INDEX IF NOT EXISTS idx_donations_package ON donations(package);
	`)
	if err != nil {
		return fmt.Errorf("creating donations table: %w", err)
	}

	// The charge id was not recorded by the first schema.
	if err := db.addColumnIfNotExists("donations", "stripe_charge_id",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding stripe_charge_id to donations: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// ALTER TABLE migrations stay idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
