// Package postgres implements the ledger gateway on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/migration"
	"github.com/aqasim81/ledger-migrate/internal/parser"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithStatementTimeout bounds every statement a script runs. Zero disables it.
func WithStatementTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeouts.statement = d
	}
}

// WithLockTimeout bounds how long a script waits for a lock. Zero disables it.
func WithLockTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeouts.lock = d
	}
}

// Gateway stores the ledger in a PostgreSQL table and runs scripts on the
// same database.
type Gateway struct {
	pool     *pgxpool.Pool
	table    string
	timeouts timeouts
}

var _ ledger.Gateway = (*Gateway)(nil)

// New creates a Gateway backed by pool. The gateway owns the pool and
// closes it in Close.
func New(pool *pgxpool.Pool, table string, opts ...Option) (*Gateway, error) {
	parts, err := ledger.SplitTableName(table)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		pool:  pool,
		table: pgx.Identifier(parts).Sanitize(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Table returns the quoted ledger table name.
func (g *Gateway) Table() string {
	return g.table
}

// EnsureTable creates the ledger table if it does not exist.
func (g *Gateway) EnsureTable(ctx context.Context) error {
	_, err := g.pool.Exec(ctx, createTableSQL(g.table))
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrTableCreation, err)
	}

	return nil
}

// FetchAll returns every ledger row in installed order.
func (g *Gateway) FetchAll(ctx context.Context) ([]migration.Migration, error) {
	rows, err := g.pool.Query(ctx, fmt.Sprintf(
		`SELECT version, extension, name, checksum, apply_timestamp
		 FROM %s
		 ORDER BY installed_rank`, g.table),
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (migration.Migration, error) {
		var m migration.Migration
		if scanErr := row.Scan(&m.Version, &m.Extension, &m.Name, &m.Checksum, &m.AppliedAt); scanErr != nil {
			return migration.Migration{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// Append records m as applied.
func (g *Gateway) Append(ctx context.Context, m migration.Migration) error {
	_, err := g.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (version, extension, name, checksum) VALUES ($1, $2, $3, $4)`, g.table),
		m.Version, m.Extension, m.Name, m.Checksum,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", m.Name, err)
	}

	return nil
}

// Execute runs script in its own transaction, or statement by statement
// outside a transaction when it contains a statement PostgreSQL refuses
// inside one or manages its own transaction.
func (g *Gateway) Execute(ctx context.Context, script string) error {
	stmts, err := parser.Split(script)
	if err != nil || !requiresNoTransaction(stmts) {
		// Unparseable scripts go to the server as-is so it reports the error.
		return g.executeInTransaction(ctx, script)
	}

	sqls := make([]string, len(stmts))
	for i, s := range stmts {
		sqls[i] = s.SQL
	}

	return g.executeWithoutTransaction(ctx, sqls)
}

func (g *Gateway) executeInTransaction(ctx context.Context, script string) error {
	return execInTransaction(ctx, g.pool, func(tx pgx.Tx) error {
		if err := g.timeouts.apply(ctx, tx, true); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, script); err != nil {
			return fmt.Errorf("executing script: %w", err)
		}

		return nil
	})
}

func (g *Gateway) executeWithoutTransaction(ctx context.Context, stmts []string) error {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if g.timeouts.enabled() {
		if err := g.timeouts.apply(ctx, conn, false); err != nil {
			return err
		}

		defer resetTimeouts(context.WithoutCancel(ctx), conn) //nolint:errcheck // connection returns to the pool either way
	}

	return execWithoutTransaction(ctx, conn, stmts)
}

// ExecuteSession runs every script inside one transaction on one connection
// and rolls it back. Scripts that cannot run in a transaction, or would end
// it early with COMMIT, are rejected before anything executes.
func (g *Gateway) ExecuteSession(ctx context.Context, scripts []string) error {
	for i, script := range scripts {
		stmts, err := parser.Split(script)
		if err == nil && requiresNoTransaction(stmts) {
			return &ledger.ScriptError{Index: i, Err: ledger.ErrNonTransactionalScript}
		}
	}

	return execRolledBack(ctx, g.pool, func(tx pgx.Tx) error {
		if err := g.timeouts.apply(ctx, tx, true); err != nil {
			return err
		}

		for i, script := range scripts {
			if _, err := tx.Exec(ctx, script); err != nil {
				return &ledger.ScriptError{Index: i, Err: err}
			}
		}

		return nil
	})
}

// Close closes the underlying pool.
func (g *Gateway) Close() error {
	if g.pool != nil {
		g.pool.Close()
	}

	return nil
}
