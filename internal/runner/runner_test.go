package runner_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ledger-migrate/internal/database"
	"github.com/aqasim81/ledger-migrate/internal/executor"
	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/ledger/sqlite"
	"github.com/aqasim81/ledger-migrate/internal/metrics"
	"github.com/aqasim81/ledger-migrate/internal/migration"
	"github.com/aqasim81/ledger-migrate/internal/resolver"
	"github.com/aqasim81/ledger-migrate/internal/runner"
)

const testDir = "/migrations"

type fixture struct {
	gw  ledger.Gateway
	fs  vfs.FileSystem
	run *runner.Runner
}

func newFixture(t *testing.T, files map[string]string, opts ...runner.Option) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	gw, err := sqlite.New(db, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	require.NoError(t, gw.EnsureTable(ctx))

	fsys := memoryfs.New()
	require.NoError(t, fsys.MkdirAll(testDir, 0o755))

	f := &fixture{gw: gw, fs: fsys}
	for name, content := range files {
		f.write(t, name, content)
	}

	f.run = runner.New(gw, fsys, testDir, opts...)

	return f
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, vfs.WriteFile(f.fs, filepath.Join(testDir, name), []byte(content), 0o644))
}

func (f *fixture) ledgerNames(t *testing.T) []string {
	t.Helper()

	applied, err := f.gw.FetchAll(context.Background())
	require.NoError(t, err)

	out := make([]string, len(applied))
	for i, m := range applied {
		out[i] = m.Name
	}

	return out
}

func render(t *testing.T, r *executor.Report) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))

	return buf.String()
}

var twoFiles = map[string]string{ //nolint:gochecknoglobals // read-only fixture
	"V1__init.sql":    "CREATE TABLE users (id INTEGER PRIMARY KEY);",
	"V2__add_col.sql": "ALTER TABLE users ADD COLUMN email TEXT;",
}

func TestApply_endToEndThenNothingToDo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)

	report, err := f.run.Apply(ctx, false)

	require.NoError(t, err)
	assert.Equal(t, "Migrating --> V1__init.sql\nV1__init.sql SUCCESS\n"+
		"Migrating --> V2__add_col.sql\nV2__add_col.sql SUCCESS\n", render(t, report))

	applied, err := f.gw.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "1", applied[0].Version)
	assert.Equal(t, "2", applied[1].Version)

	again, err := f.run.Apply(ctx, false)

	require.NoError(t, err)
	assert.True(t, again.NothingToDo)
	assert.Equal(t, "Nothing to do\n", render(t, again))
	assert.Len(t, f.ledgerNames(t), 2)
}

func TestApply_naturalOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"V10__c.sql": "ALTER TABLE t ADD COLUMN c TEXT;",
		"V2__b.sql":  "ALTER TABLE t ADD COLUMN b TEXT;",
		"V1__a.sql":  "CREATE TABLE t (id INTEGER);",
	})

	_, err := f.run.Apply(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, []string{"V1__a.sql", "V2__b.sql", "V10__c.sql"}, f.ledgerNames(t))
}

func TestApply_partialFailureRetention(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"V1__init.sql":   "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"V2__broken.sql": "ALTER TABLE missing ADD COLUMN email TEXT;",
		"V3__later.sql":  "CREATE TABLE later (id INTEGER);",
	})

	report, err := f.run.Apply(context.Background(), false)

	require.ErrorIs(t, err, executor.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "V2__broken.sql")
	assert.Equal(t, []string{"V1__init.sql"}, f.ledgerNames(t))
	assert.Equal(t, executor.StatePending, report.Entries[2].State)

	// The third script never ran.
	plan, planErr := f.run.Plan(context.Background())
	require.NoError(t, planErr)
	assert.Len(t, plan, 2)
	require.Error(t, f.gw.Execute(context.Background(), "SELECT 1 FROM later"))
}

func TestApply_dryRunLeavesLedgerAndSchemaUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)

	report, err := f.run.Apply(ctx, true)

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Count(executor.StateValidated))
	assert.Empty(t, f.ledgerNames(t))
	require.Error(t, f.gw.Execute(ctx, "SELECT 1 FROM users"))

	// A real run afterwards applies the same plan.
	_, err = f.run.Apply(ctx, false)
	require.NoError(t, err)
	assert.Len(t, f.ledgerNames(t), 2)
}

func TestApply_dryRunFailureNamesScript(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"V1__init.sql":   "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"V2__broken.sql": "INSERT INTO nowhere VALUES (1);",
	})

	_, err := f.run.Apply(context.Background(), true)

	var execErr *executor.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "V2__broken.sql", execErr.Migration.Name)
	assert.Empty(t, f.ledgerNames(t))
}

func TestApply_emptyDirectoryWithLedger_returnsMigrationsNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)

	_, err := f.run.Apply(ctx, false)
	require.NoError(t, err)

	require.NoError(t, f.fs.RemoveAll(testDir))
	require.NoError(t, f.fs.MkdirAll(testDir, 0o755))

	_, err = f.run.Apply(ctx, false)

	require.ErrorIs(t, err, resolver.ErrMigrationsNotFound)

	var notFound *resolver.MigrationsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, testDir, notFound.Dir)
}

func TestApply_missingDirectory_returnsError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	require.NoError(t, f.fs.RemoveAll(testDir))

	_, err := f.run.Apply(context.Background(), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading migrations directory")
}

func TestApply_recordsMetrics(t *testing.T) {
	t.Parallel()

	rec := metrics.New()
	f := newFixture(t, twoFiles, runner.WithMetrics(rec))

	_, err := f.run.Apply(context.Background(), false)

	require.NoError(t, err)
	assert.InDelta(t, 2, testutil.ToFloat64(rec.Pending), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(rec.MigrationsTotal.WithLabelValues(executor.OutcomeApplied)), 0)
	assert.Greater(t, testutil.ToFloat64(rec.LastRun), float64(0))
}

func TestApply_progressCallback(t *testing.T) {
	t.Parallel()

	var completed []string
	f := newFixture(t, twoFiles, runner.WithProgressCallback(func(ev executor.ProgressEvent) {
		if ev.Status == executor.StatusCompleted {
			completed = append(completed, ev.Migration.Name)
		}
	}))

	_, err := f.run.Apply(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, []string{"V1__init.sql", "V2__add_col.sql"}, completed)
}

func TestApply_extensionsOption(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]string{
		"V1__init.sql":  "CREATE TABLE t (id INTEGER);",
		"V2__seed.psql": "INSERT INTO t VALUES (1);",
	}, runner.WithExtensions("sql", "psql"))

	_, err := f.run.Apply(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, []string{"V1__init.sql", "V2__seed.psql"}, f.ledgerNames(t))
}

func TestPlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)

	plan, err := f.run.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	_, err = f.run.Apply(ctx, false)
	require.NoError(t, err)

	f.write(t, "V3__more.sql", "CREATE TABLE more (id INTEGER);")

	plan, err = f.run.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "V3__more.sql", plan[0].Name)
}

func TestInfoAndValidate_reportDrift(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)

	_, err := f.run.Apply(ctx, false)
	require.NoError(t, err)

	drifts, err := f.run.Validate(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	f.write(t, "V2__add_col.sql", "ALTER TABLE users ADD COLUMN email VARCHAR(255);")
	f.write(t, "V3__pending.sql", "SELECT 1;")
	require.NoError(t, f.fs.Remove(filepath.Join(testDir, "V1__init.sql")))

	drifts, err = f.run.Validate(ctx)
	require.ErrorIs(t, err, resolver.ErrDrift)
	require.Len(t, drifts, 2)
	assert.Equal(t, resolver.DriftMissing, drifts[0].Kind)
	assert.Equal(t, resolver.DriftChecksum, drifts[1].Kind)

	entries, err := f.run.Info(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, resolver.StateMissing, entries[0].State)
	assert.True(t, entries[1].Drifted)
	assert.Equal(t, resolver.StatePending, entries[2].State)

	// Drift does not block applying new files.
	_, err = f.run.Apply(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"V1__init.sql", "V2__add_col.sql", "V3__pending.sql"}, f.ledgerNames(t))
}

func TestImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)

	m, err := f.run.Import(ctx, "V1__init.sql")

	require.NoError(t, err)
	assert.Equal(t, "1", m.Version)
	assert.Len(t, m.Checksum, 64)
	assert.Equal(t, []string{"V1__init.sql"}, f.ledgerNames(t))

	// Imported scripts are not executed.
	require.Error(t, f.gw.Execute(ctx, "SELECT 1 FROM users"))

	_, err = f.run.Import(ctx, filepath.Join(testDir, "V1__init.sql"))
	require.ErrorIs(t, err, runner.ErrAlreadyApplied)

	plan, err := f.run.Plan(ctx)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "V2__add_col.sql", plan[0].Name)
}

func TestImport_errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		file        string
		wantErr     error
		errContains string
	}{
		{name: "bad name", file: "init.sql", wantErr: runner.ErrInvalidMigrationName},
		{name: "missing file", file: "V9__absent.sql", errContains: "reading migration file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, twoFiles)
			_, err := f.run.Import(context.Background(), tt.file)

			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			assert.Contains(t, err.Error(), tt.errContains)
			assert.Empty(t, f.ledgerNames(t))
		})
	}
}

func TestImport_extensionMustBeAccepted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	f := newFixture(t, twoFiles)
	f.write(t, "V3__notes.txt", "not a migration the scanner reads")

	_, err := f.run.Import(ctx, "V3__notes.txt")
	require.ErrorIs(t, err, runner.ErrUnsupportedExtension)
	assert.Empty(t, f.ledgerNames(t))

	withTxt := newFixture(t, twoFiles, runner.WithExtensions("sql", "txt"))
	withTxt.write(t, "V3__notes.txt", "SELECT 1;")

	m, err := withTxt.run.Import(ctx, "V3__notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "txt", m.Extension)
}

func TestImport_versionAlreadyTaken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	f := newFixture(t, twoFiles)
	f.write(t, "V1_0__other.sql", "SELECT 1;")

	_, err := f.run.Import(ctx, "V1__init.sql")
	require.NoError(t, err)

	_, err = f.run.Import(ctx, "V1_0__other.sql")
	require.ErrorIs(t, err, migration.ErrDuplicateVersion)
	assert.Contains(t, err.Error(), "V1__init.sql")
	assert.Equal(t, []string{"V1__init.sql"}, f.ledgerNames(t))
}

func TestApply_ledgerTimestampsAreSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, twoFiles)
	before := time.Now().Add(-time.Minute)

	_, err := f.run.Apply(ctx, false)
	require.NoError(t, err)

	applied, err := f.gw.FetchAll(ctx)
	require.NoError(t, err)

	for _, m := range applied {
		assert.True(t, m.AppliedAt.After(before), "apply_timestamp %v", m.AppliedAt)
	}
}
