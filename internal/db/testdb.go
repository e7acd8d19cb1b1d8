package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns an in-memory SQLite database with the schema applied. It
// is closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := Connect(Config{Driver: DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("connecting test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}
