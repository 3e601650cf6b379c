// ABOUTME: Database connection management and initialization
// ABOUTME: Opens SQLite (WAL, foreign keys) or PostgreSQL via pgx and applies the schema
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// OpenDatabase opens (creating if needed) the SQLite database at path.
func OpenDatabase(path string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// WAL for concurrent readers; foreign keys so deal deletes cascade
	db, err := sql.Open(DriverSQLite, path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)

	if err := InitSchema(db, SQLite); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenPostgres connects to the PostgreSQL database at dsn.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := InitSchema(db, Postgres); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Open opens the store for driver. For SQLite dsn is a file path.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "", DriverSQLite, "sqlite":
		database, err := OpenDatabase(dsn)
		if err != nil {
			return nil, err
		}
		return NewStore(database, SQLite), nil
	case DriverPostgres, "postgres":
		database, err := OpenPostgres(dsn)
		if err != nil {
			return nil, err
		}
		return NewStore(database, Postgres), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
