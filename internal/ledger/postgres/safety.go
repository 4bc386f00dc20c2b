package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by pgx.Tx and *pgxpool.Conn.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// timeouts are the per-script limits applied before a script runs.
type timeouts struct {
	lock      time.Duration
	statement time.Duration
}

func (t timeouts) enabled() bool {
	return t.lock > 0 || t.statement > 0
}

// apply sets lock_timeout and statement_timeout on the current session.
// With local set, the values only last until the end of the transaction.
// This causes the script to fail fast if it cannot acquire a lock, and
// bounds runaway statements.
func (t timeouts) apply(ctx context.Context, db execer, local bool) error {
	if err := setTimeout(ctx, db, "lock_timeout", t.lock, local); err != nil {
		return err
	}

	return setTimeout(ctx, db, "statement_timeout", t.statement, local)
}

func setTimeout(ctx context.Context, db execer, name string, d time.Duration, local bool) error {
	if d <= 0 {
		return nil
	}

	ms := strconv.FormatInt(d.Milliseconds(), 10)

	_, err := db.Exec(ctx, "SELECT set_config($1, $2, $3)", name, ms, local)
	if err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}

	return nil
}

// resetTimeouts restores the session defaults.
func resetTimeouts(ctx context.Context, db execer) error {
	_, err := db.Exec(ctx, "RESET lock_timeout; RESET statement_timeout")
	if err != nil {
		return fmt.Errorf("resetting timeouts: %w", err)
	}

	return nil
}
