package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ledger-migrate/internal/database"
)

func TestOpenSQLite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dsn     func(t *testing.T) string
		wantErr error
	}{
		{
			name: "in-memory database",
			dsn:  func(*testing.T) string { return ":memory:" },
		},
		{
			name: "file path",
			dsn: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "ledger.db")
			},
		},
		{
			name: "sqlite scheme prefix is stripped",
			dsn: func(t *testing.T) string {
				t.Helper()
				return "sqlite://" + filepath.Join(t.TempDir(), "ledger.db")
			},
		},
		{
			name:    "empty path",
			dsn:     func(*testing.T) string { return "" },
			wantErr: database.ErrInvalidDatabaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			db, err := database.OpenSQLite(ctx, tt.dsn(t))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			var fk int
			require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
			assert.Equal(t, 1, fk)
		})
	}
}

func TestOpenSQLite_memoryIsSharedAcrossCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
	assert.Zero(t, n)
}
