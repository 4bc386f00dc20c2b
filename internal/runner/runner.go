// Package runner composes the scanner, ledger gateway, resolver and
// executor into the operations exposed by the CLI.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/rs/zerolog"

	"github.com/aqasim81/ledger-migrate/internal/executor"
	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/migration"
	"github.com/aqasim81/ledger-migrate/internal/resolver"
)

// Metrics receives run-level measurements in addition to per-migration
// outcomes.
type Metrics interface {
	executor.Recorder
	SetPending(n int)
	MarkRun(t time.Time)
}

// Runner executes one CLI operation against a gateway and a migrations
// directory.
type Runner struct {
	gw         ledger.Gateway
	fs         vfs.FileSystem
	dir        string
	scanOpts   []migration.ScanOption
	log        zerolog.Logger
	metrics    Metrics
	onProgress func(executor.ProgressEvent)
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithExtensions sets the accepted script extensions.
func WithExtensions(exts ...string) Option {
	return func(r *Runner) {
		if len(exts) > 0 {
			r.scanOpts = append(r.scanOpts, migration.WithExtensions(exts...))
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMetrics sets where run measurements go.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithProgressCallback forwards executor progress events.
func WithProgressCallback(fn func(executor.ProgressEvent)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// New creates a Runner reading migrations from dir on fs.
func New(gw ledger.Gateway, fs vfs.FileSystem, dir string, opts ...Option) *Runner {
	r := &Runner{
		gw:  gw,
		fs:  fs,
		dir: dir,
		log: zerolog.Nop(),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// state is the local and ledger view every operation starts from.
type state struct {
	local   []migration.Migration
	applied []migration.Migration
}

func (r *Runner) load(ctx context.Context) (state, error) {
	local, err := migration.LoadFromDir(r.fs, r.dir, r.scanOpts...)
	if err != nil {
		return state{}, err
	}

	applied, err := r.gw.FetchAll(ctx)
	if err != nil {
		return state{}, fmt.Errorf("reading ledger: %w", err)
	}

	r.log.Debug().
		Str("dir", r.dir).
		Int("local", len(local)).
		Int("applied", len(applied)).
		Msg("scanned migrations")

	return state{local: local, applied: applied}, nil
}

// Plan returns the migrations Apply would run, in order.
func (r *Runner) Plan(ctx context.Context) ([]migration.Migration, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	return resolver.Resolve(s.local, s.applied, r.dir) //nolint:wrapcheck // typed resolver error
}

// Apply resolves and runs pending migrations. Drift between the ledger and
// local files is logged as warnings and does not stop the run.
func (r *Runner) Apply(ctx context.Context, dryRun bool) (*executor.Report, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range resolver.Verify(s.local, s.applied) {
		r.log.Warn().Str("migration", d.Applied.Name).Str("kind", string(d.Kind)).Msg(d.String())
	}

	plan, err := resolver.Resolve(s.local, s.applied, r.dir)
	if err != nil {
		return nil, err //nolint:wrapcheck // typed resolver error
	}

	if r.metrics != nil {
		r.metrics.SetPending(len(plan))
	}

	r.log.Info().Int("pending", len(plan)).Bool("dry_run", dryRun).Msg("resolved plan")

	opts := []executor.Option{
		executor.WithDryRun(dryRun),
		executor.WithLogger(r.log),
		executor.WithProgressCallback(r.onProgress),
	}
	if r.metrics != nil {
		opts = append(opts, executor.WithRecorder(r.metrics))
	}

	report, err := executor.New(r.gw, r.fs, r.dir, opts...).Apply(ctx, plan)

	if r.metrics != nil {
		r.metrics.MarkRun(r.now())
	}

	return report, err
}

// Info returns the merged applied/missing/pending view.
func (r *Runner) Info(ctx context.Context) ([]resolver.Entry, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	return resolver.Status(s.local, s.applied), nil
}

// Validate returns every drift and, when there is any, an error wrapping
// resolver.ErrDrift.
func (r *Runner) Validate(ctx context.Context) ([]resolver.Drift, error) {
	s, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	drifts := resolver.Verify(s.local, s.applied)
	if len(drifts) > 0 {
		return drifts, fmt.Errorf("%w: %d migration(s)", resolver.ErrDrift, len(drifts))
	}

	return nil, nil
}

// Import records file as applied without executing it. A bare file name is
// looked up in the migrations directory. The file must be one the scanner
// would pick up, and its version must not already be taken in the ledger.
func (r *Runner) Import(ctx context.Context, file string) (migration.Migration, error) {
	name := filepath.Base(file)

	if _, _, ok := migration.ParseName(name); !ok {
		return migration.Migration{}, fmt.Errorf("%w: %s", ErrInvalidMigrationName, name)
	}

	version, ext, ok := migration.Match(name, r.scanOpts...)
	if !ok {
		return migration.Migration{}, fmt.Errorf("%w: %s", ErrUnsupportedExtension, name)
	}

	path := file
	if !filepath.IsAbs(file) && filepath.Dir(file) == "." {
		path = filepath.Join(r.dir, file)
	}

	data, err := vfs.ReadFile(r.fs, path)
	if err != nil {
		return migration.Migration{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	applied, err := r.gw.FetchAll(ctx)
	if err != nil {
		return migration.Migration{}, fmt.Errorf("reading ledger: %w", err)
	}

	for _, a := range applied {
		if a.Name == name {
			return migration.Migration{}, fmt.Errorf("%w: %s", ErrAlreadyApplied, name)
		}
	}

	m := migration.Migration{
		Version:   version,
		Extension: ext,
		Name:      name,
		Checksum:  migration.ComputeChecksum(data),
	}

	if err := migration.CheckVersionFree(m, applied); err != nil {
		return migration.Migration{}, err //nolint:wrapcheck // names both files
	}

	if err := r.gw.Append(ctx, m); err != nil {
		return migration.Migration{}, fmt.Errorf("recording %s: %w", name, err)
	}

	r.log.Info().Str("migration", name).Msg("imported without executing")

	return m, nil
}
