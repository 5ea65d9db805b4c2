package db

import (
	"testing"

	"github.com/jmoiron/sqlx"
)

// OpenTest returns a migrated in-memory SQLite database that is closed when the test ends.
func OpenTest(t testing.TB) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	// Every connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := RunMigrations(conn.DB, "sqlite"); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}
