// Package backend opens the ledger gateway selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/aqasim81/ledger-migrate/internal/database"
	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/ledger/postgres"
	"github.com/aqasim81/ledger-migrate/internal/ledger/sqlite"
)

// Open connects to the configured database and ensures the ledger table
// exists. The caller must Close the returned gateway.
func Open(ctx context.Context, cfg ledger.Config) (ledger.Gateway, error) {
	gw, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := gw.EnsureTable(ctx); err != nil {
		gw.Close() //nolint:errcheck,gosec // already failing

		return nil, err
	}

	return gw, nil
}

func open(ctx context.Context, cfg ledger.Config) (ledger.Gateway, error) {
	switch cfg.Type {
	case ledger.Postgres:
		if _, err := ledger.SplitTableName(cfg.Table); err != nil {
			return nil, err
		}

		pool, err := database.NewPool(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}

		return postgres.New(pool, cfg.Table,
			postgres.WithStatementTimeout(cfg.StatementTimeout),
			postgres.WithLockTimeout(cfg.LockTimeout),
		)
	case ledger.SQLite:
		if _, err := ledger.SplitTableName(cfg.Table); err != nil {
			return nil, err
		}

		db, err := database.OpenSQLite(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}

		return sqlite.New(db, cfg.Table)
	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownBackend, cfg.Type)
	}
}
