package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execInTransaction runs fn inside a database transaction.
// On success the transaction is committed; on error it is rolled back.
func execInTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// execRolledBack runs fn inside a transaction on one dedicated connection
// and always rolls it back.
func execRolledBack(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring session connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	fnErr := fn(tx)

	if err := tx.Rollback(ctx); err != nil && fnErr == nil {
		return fmt.Errorf("rolling back session: %w", err)
	}

	return fnErr
}

// execWithoutTransaction executes each statement on its own, outside any
// transaction block. Required for statements like CREATE INDEX CONCURRENTLY
// and for scripts that issue their own BEGIN/COMMIT. A block the script left
// open when it failed is rolled back before the connection is released.
func execWithoutTransaction(ctx context.Context, conn *pgxpool.Conn, stmts []string) error {
	for _, sql := range stmts {
		if _, err := conn.Exec(ctx, sql); err != nil {
			if conn.Conn().PgConn().TxStatus() != 'I' {
				_, _ = conn.Exec(context.WithoutCancel(ctx), "ROLLBACK")
			}

			return fmt.Errorf("executing outside transaction: %w", err)
		}
	}

	return nil
}
