package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ledger-migrate/internal/executor"
	"github.com/aqasim81/ledger-migrate/internal/metrics"
)

var _ executor.Recorder = (*metrics.Recorder)(nil)

func TestRecorder_ObserveMigration(t *testing.T) {
	t.Parallel()

	r := metrics.New()

	r.ObserveMigration(executor.OutcomeApplied, 20*time.Millisecond)
	r.ObserveMigration(executor.OutcomeApplied, 30*time.Millisecond)
	r.ObserveMigration(executor.OutcomeFailed, time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(r.MigrationsTotal.WithLabelValues("applied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.MigrationsTotal.WithLabelValues("failed")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.Duration))
}

func TestRecorder_gauges(t *testing.T) {
	t.Parallel()

	r := metrics.New()
	r.SetPending(3)
	r.MarkRun(time.Unix(1700000000, 0))

	assert.InDelta(t, 3, testutil.ToFloat64(r.Pending), 0)
	assert.InDelta(t, 1700000000, testutil.ToFloat64(r.LastRun), 0)
}

func TestRecorder_independentRegistries(t *testing.T) {
	t.Parallel()

	a, b := metrics.New(), metrics.New()
	a.SetPending(5)

	assert.InDelta(t, 0, testutil.ToFloat64(b.Pending), 0)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()

	r := metrics.New()
	r.ObserveMigration(executor.OutcomeDryRun, time.Millisecond)
	r.SetPending(1)

	path := filepath.Join(t.TempDir(), "migrate.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `migrate_migrations_total{status="dry_run"} 1`)
	assert.Contains(t, out, "migrate_pending_migrations 1")
	assert.True(t, strings.Contains(out, "# TYPE migrate_migration_duration_seconds histogram"))
}

func TestRecorder_WriteTextfile_badPath(t *testing.T) {
	t.Parallel()

	err := metrics.New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "migrate.prom"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing metrics")
}
