// Package sqliteutil opens SQLite databases with the settings every store
// of the application relies on.
package sqliteutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// OpenDB opens (creating if needed) the database at path with WAL
// journaling, a busy timeout and foreign keys enabled. Writes are
// serialized through a single connection.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create database directory %q: %w", dir, err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, diagnose(path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, diagnose(path, err)
	}
	return db, nil
}

// IsCantOpenError reports a SQLITE_CANTOPEN failure.
func IsCantOpenError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}

func diagnose(path string, err error) error {
	if !IsCantOpenError(err) {
		return err
	}
	dir := filepath.Dir(path)
	info, statErr := os.Stat(dir)
	switch {
	case statErr != nil:
		return fmt.Errorf("cannot create database at %q: %w", path, statErr)
	case !info.IsDir():
		return fmt.Errorf("cannot create database at %q: %q is not a directory", path, dir)
	default:
		return fmt.Errorf("cannot create database at %q: permission denied in %q: %w", path, dir, err)
	}
}
