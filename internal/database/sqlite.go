package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteDriver = "sqlite"

// sqlitePragmas are applied once to the single pooled connection.
var sqlitePragmas = []string{ //nolint:gochecknoglobals // fixed connection setup
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// OpenSQLite opens the SQLite database at dsn (a file path, file: URI or
// ":memory:"). A "sqlite://" prefix is stripped.
//
// The pool is capped at one connection: every statement and transaction
// then sees the same database, which keeps ":memory:" usable and the
// pragmas in effect.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty SQLite path", ErrInvalidDatabaseURL)
	}

	db, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck,gosec // already failing

			return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, pragma, err)
		}
	}

	return db, nil
}
