// Package sqlite implements the ledger gateway on SQLite via database/sql
// and the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// timestampLayouts are the text forms SQLite may hand back for
// apply_timestamp.
var timestampLayouts = []string{ //nolint:gochecknoglobals // fixed parse table
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// Gateway stores the ledger in a SQLite table and runs scripts on the same
// database.
type Gateway struct {
	db    *sql.DB
	table string
}

var _ ledger.Gateway = (*Gateway)(nil)

// New creates a Gateway backed by db. The gateway owns db and closes it in
// Close.
func New(db *sql.DB, table string) (*Gateway, error) {
	parts, err := ledger.SplitTableName(table)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = `"` + p + `"`
	}

	return &Gateway{db: db, table: strings.Join(quoted, ".")}, nil
}

// Table returns the quoted ledger table name.
func (g *Gateway) Table() string {
	return g.table
}

// EnsureTable creates the ledger table if it does not exist.
func (g *Gateway) EnsureTable(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    installed_rank   INTEGER PRIMARY KEY AUTOINCREMENT,
    version          TEXT NOT NULL,
    extension        TEXT NOT NULL,
    name             TEXT NOT NULL,
    checksum         TEXT NOT NULL,
    apply_timestamp  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, g.table))
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrTableCreation, err)
	}

	return nil
}

// FetchAll returns every ledger row in installed order.
func (g *Gateway) FetchAll(ctx context.Context) ([]migration.Migration, error) {
	rows, err := g.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT version, extension, name, checksum, apply_timestamp
		 FROM %s
		 ORDER BY installed_rank`, g.table),
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []migration.Migration

	for rows.Next() {
		var (
			m  migration.Migration
			ts any
		)

		if err := rows.Scan(&m.Version, &m.Extension, &m.Name, &m.Checksum, &ts); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}

		if m.AppliedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("scanning migration row %s: %w", m.Name, err)
		}

		applied = append(applied, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

func parseTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case int64:
		return time.Unix(ts, 0).UTC(), nil
	case []byte:
		return parseTimestamp(string(ts))
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				return t, nil
			}
		}

		return time.Time{}, fmt.Errorf("unrecognized apply_timestamp %q", ts)
	default:
		return time.Time{}, fmt.Errorf("unexpected apply_timestamp type %T", v)
	}
}

// Append records m as applied.
func (g *Gateway) Append(ctx context.Context, m migration.Migration) error {
	_, err := g.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (version, extension, name, checksum) VALUES (?, ?, ?, ?)`, g.table),
		m.Version, m.Extension, m.Name, m.Checksum,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", m.Name, err)
	}

	return nil
}

// Execute runs script in its own transaction. Scripts that manage their own
// transaction, or contain VACUUM, ATTACH or DETACH, run as-is on one
// connection instead.
func (g *Gateway) Execute(ctx context.Context, script string) error {
	if requiresNoTransaction(script) {
		return g.executeWithoutTransaction(ctx, script)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // rollback on committed tx returns ErrTxDone

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("executing script: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// executeWithoutTransaction runs script on a pinned connection. A
// transaction the script left open when it failed is rolled back before the
// connection goes back to the pool.
func (g *Gateway) executeWithoutTransaction(ctx context.Context, script string) error {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close() //nolint:errcheck // returns the connection to the pool

	if _, err := conn.ExecContext(ctx, script); err != nil {
		// Fails harmlessly with "no transaction is active" when none is open.
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")

		return fmt.Errorf("executing outside transaction: %w", err)
	}

	return nil
}

// ExecuteSession runs every script inside one transaction on one connection
// and rolls it back. Scripts that would end that transaction early, or that
// SQLite refuses inside one, are rejected before anything executes.
func (g *Gateway) ExecuteSession(ctx context.Context, scripts []string) error {
	for i, script := range scripts {
		if requiresNoTransaction(script) {
			return &ledger.ScriptError{Index: i, Err: ledger.ErrNonTransactionalScript}
		}
	}

	conn, err := g.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring session connection: %w", err)
	}
	defer conn.Close() //nolint:errcheck // returns the connection to the pool

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	var execErr error

	for i, script := range scripts {
		if _, err := tx.ExecContext(ctx, script); err != nil {
			execErr = &ledger.ScriptError{Index: i, Err: err}

			break
		}
	}

	if err := tx.Rollback(); err != nil && execErr == nil {
		return fmt.Errorf("rolling back session: %w", err)
	}

	return execErr
}

// Close closes the underlying database handle.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}

	if err := g.db.Close(); err != nil {
		return fmt.Errorf("closing sqlite database: %w", err)
	}

	return nil
}
