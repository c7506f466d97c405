// Package db opens the identity database. Postgres DSNs use pgx; sqlite3:// DSNs use SQLite,
// which is the default on a single device.
package db

import (
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteScheme prefixes DSNs that select the SQLite driver (e.g. sqlite3://checkin.db).
const SQLiteScheme = "sqlite3://"

// ErrEmptyDSN is returned when no DSN is configured.
var ErrEmptyDSN = errors.New("db: DATABASE_URL is empty")

// Driver returns the database/sql driver name and driver-specific DSN for dsn.
func Driver(dsn string) (driver, source string) {
	if path, ok := strings.CutPrefix(dsn, SQLiteScheme); ok {
		return "sqlite3", "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	}
	return "pgx", dsn
}

// Open opens and pings the database for dsn. Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}
	driver, source := Driver(dsn)
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1) // sqlite
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
