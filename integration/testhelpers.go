//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Each test gets its own server, so ledger tables and script side effects
// never leak between parallel tests.
const (
	postgresImage = "postgres:16-alpine"
	ledgerDB      = "ledger_test"
	ledgerUser    = "ledger"
	ledgerPass    = "ledger"
)

// SetupPostgresDSN starts a fresh server and returns a URL that
// backend.Open and database.NewPool accept. The container is terminated
// when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       ledgerDB,
			"POSTGRES_USER":     ledgerUser,
			"POSTGRES_PASSWORD": ledgerPass,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + ledgerUser + ":" + ledgerPass + "@" + host + ":" + port.Port() + "/" + ledgerDB + "?sslmode=disable"
}

// SetupPostgres returns a pool on a fresh server for building a
// postgres.Gateway directly and for inspecting what scripts left behind.
// Closing it again through Gateway.Close is harmless.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, SetupPostgresDSN(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	require.NoError(t, pool.Ping(ctx))

	return pool
}
