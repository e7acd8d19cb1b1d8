package db

import (
	"database/sql"
	"fmt"
)

// sqliteSchema is the full SQLite schema, one statement per entry.
//
// borrow_requests.item_id deliberately has no foreign key: deleting an item
// leaves its requests in place.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'operator' CHECK (role IN ('admin', 'operator')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    quantity    INTEGER NOT NULL CHECK (quantity >= 0),
    image       BLOB,
    image_mime  TEXT,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS borrow_requests (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL,
    email       TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'denied')),
    approved_at DATETIME,
    denied_at   DATETIME,
    returned_at DATETIME,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_borrow_requests_item
    ON borrow_requests(item_id, status, returned_at)`,
	`CREATE TABLE IF NOT EXISTS settings (
    name  TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
)`,
}

// mysqlSchema mirrors sqliteSchema for MySQL 8.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id            BIGINT AUTO_INCREMENT PRIMARY KEY,
    username      VARCHAR(255) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    role          VARCHAR(16) NOT NULL DEFAULT 'operator',
    created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
    deleted_at    DATETIME(6) NULL,
    active_username VARCHAR(255) AS (IF(deleted_at IS NULL, username, NULL)) STORED,
    UNIQUE KEY idx_users_username_active (active_username),
    CHECK (role IN ('admin', 'operator'))
)`,
	`CREATE TABLE IF NOT EXISTS items (
    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
    name        VARCHAR(255) NOT NULL,
    quantity    INT NOT NULL,
    image       MEDIUMBLOB NULL,
    image_mime  VARCHAR(64) NULL,
    created_at  DATETIME(6) NOT NULL,
    updated_at  DATETIME(6) NOT NULL,
    CHECK (quantity >= 0)
)`,
	`CREATE TABLE IF NOT EXISTS borrow_requests (
    id          BIGINT AUTO_INCREMENT PRIMARY KEY,
    item_id     BIGINT NOT NULL,
    email       VARCHAR(320) NOT NULL,
    status      VARCHAR(16) NOT NULL DEFAULT 'pending',
    approved_at DATETIME(6) NULL,
    denied_at   DATETIME(6) NULL,
    returned_at DATETIME(6) NULL,
    created_at  DATETIME(6) NOT NULL,
    updated_at  DATETIME(6) NOT NULL,
    KEY idx_borrow_requests_item (item_id, status, returned_at),
    CHECK (status IN ('pending', 'approved', 'denied'))
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    name  VARCHAR(64) PRIMARY KEY,
    value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        VARCHAR(64) PRIMARY KEY,
    expires_at DATETIME(6) NOT NULL
)`,
}

// migrations are applied in order after schema creation, per driver.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = map[string][]string{
	DriverSQLite: {},
	DriverMySQL:  {},
}

// EnsureSchema creates all tables and indexes if they don't already exist
// and applies pending migrations.
func EnsureSchema(db *sql.DB, driver string) error {
	if driver == "" {
		driver = DriverSQLite
	}

	var schema []string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverMySQL:
		schema = mysqlSchema
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema (statement %d): %w", i+1, err)
		}
	}

	for i, m := range migrations[driver] {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
