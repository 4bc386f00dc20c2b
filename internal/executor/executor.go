// Package executor applies a resolved migration plan against a ledger
// gateway, for real or as a rolled-back dry run.
package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/rs/zerolog"

	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Outcome labels passed to a Recorder.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
	OutcomeDryRun  = "dry_run"
)

// ProgressEvent is emitted by the executor for each migration processed.
type ProgressEvent struct {
	Migration *migration.Migration
	Status    string
	Duration  time.Duration
	Error     error
	DryRun    bool
}

// Recorder receives one observation per migration that reached a terminal
// state.
type Recorder interface {
	ObserveMigration(outcome string, d time.Duration)
}

// Executor applies planned migrations in order.
type Executor struct {
	gw         ledger.Gateway
	fs         vfs.FileSystem
	dir        string
	dryRun     bool
	onProgress func(ProgressEvent)
	log        zerolog.Logger
	recorder   Recorder
	now        func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithDryRun runs the whole plan in one rolled-back session and records
// nothing.
func WithDryRun(b bool) Option {
	return func(e *Executor) { e.dryRun = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// WithLogger sets the logger for per-migration diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithRecorder sets where migration outcomes are counted.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// New creates an Executor that reads scripts named by the plan from dir on
// fs and runs them through gw.
func New(gw ledger.Gateway, fs vfs.FileSystem, dir string, opts ...Option) *Executor {
	e := &Executor{
		gw:  gw,
		fs:  fs,
		dir: dir,
		log: zerolog.Nop(),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply runs plan in order and returns what happened to each migration.
//
// In real mode each script is executed and then appended to the ledger; the
// first failure halts the run and earlier ledger entries stay. The report
// is returned alongside any error.
func (e *Executor) Apply(ctx context.Context, plan []migration.Migration) (*Report, error) {
	report := newReport(plan, e.dryRun)

	if report.NothingToDo {
		e.log.Info().Msg("nothing to do")
		return report, nil
	}

	if e.dryRun {
		return report, e.applyDryRun(ctx, report)
	}

	for i := range report.Entries {
		if err := e.applyOne(ctx, &report.Entries[i]); err != nil {
			return report, err
		}
	}

	return report, nil
}

// applyOne executes, records, and fires progress for a single migration.
func (e *Executor) applyOne(ctx context.Context, entry *Entry) error {
	m := &entry.Migration

	entry.State = StateExecuting
	e.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})

	start := e.now()

	script, err := e.readScript(*m)
	if err == nil {
		err = e.gw.Execute(ctx, script)
	}

	if err != nil {
		return e.fail(entry, start, &ExecutionError{Migration: *m, Err: err})
	}

	if err := e.gw.Append(ctx, *m); err != nil {
		return e.fail(entry, start, &LedgerWriteError{Migration: *m, Err: err})
	}

	entry.State = StateApplied
	entry.Duration = e.now().Sub(start)

	e.log.Info().
		Str("migration", m.Name).
		Str("version", m.Version).
		Dur("duration", entry.Duration).
		Msg("migration applied")
	e.observe(OutcomeApplied, entry.Duration)
	e.fireProgress(ProgressEvent{Migration: m, Status: StatusCompleted, Duration: entry.Duration})

	return nil
}

func (e *Executor) fail(entry *Entry, start time.Time, err error) error {
	entry.State = StateFailed
	entry.Duration = e.now().Sub(start)
	entry.Err = err

	e.log.Error().
		Err(err).
		Str("migration", entry.Migration.Name).
		Dur("duration", entry.Duration).
		Msg("migration failed")
	e.observe(OutcomeFailed, entry.Duration)
	e.fireProgress(ProgressEvent{
		Migration: &entry.Migration,
		Status:    StatusFailed,
		Duration:  entry.Duration,
		Error:     err,
		DryRun:    e.dryRun,
	})

	return err
}

// applyDryRun reads every script, then runs them all in one session that
// the gateway rolls back. Nothing is appended.
func (e *Executor) applyDryRun(ctx context.Context, report *Report) error {
	scripts := make([]string, len(report.Entries))

	for i := range report.Entries {
		entry := &report.Entries[i]

		script, err := e.readScript(entry.Migration)
		if err != nil {
			return e.fail(entry, e.now(), &ExecutionError{Migration: entry.Migration, Err: err})
		}

		scripts[i] = script
	}

	for i := range report.Entries {
		entry := &report.Entries[i]
		entry.State = StateExecuting
		e.fireProgress(ProgressEvent{Migration: &entry.Migration, Status: StatusStarting, DryRun: true})
	}

	start := e.now()
	sessionErr := e.gw.ExecuteSession(ctx, scripts)
	elapsed := e.now().Sub(start)

	if sessionErr != nil {
		return e.failSession(report, start, sessionErr)
	}

	for i := range report.Entries {
		entry := &report.Entries[i]
		entry.State = StateValidated
		entry.Duration = elapsed

		e.observe(OutcomeDryRun, elapsed)
		e.fireProgress(ProgressEvent{Migration: &entry.Migration, Status: StatusCompleted, Duration: elapsed, DryRun: true})
	}

	e.log.Info().Int("migrations", len(scripts)).Dur("duration", elapsed).Msg("dry run succeeded")

	return nil
}

// failSession attributes a session failure. When the gateway names the
// failing script, earlier ones are validated and later ones never ran;
// otherwise the first planned migration owns the session and every entry
// fails.
func (e *Executor) failSession(report *Report, start time.Time, err error) error {
	var scriptErr *ledger.ScriptError
	if errors.As(err, &scriptErr) && scriptErr.Index >= 0 && scriptErr.Index < len(report.Entries) {
		for i := range scriptErr.Index {
			report.Entries[i].State = StateValidated
		}

		for i := scriptErr.Index + 1; i < len(report.Entries); i++ {
			report.Entries[i].State = StatePending
		}

		failed := &report.Entries[scriptErr.Index]

		return e.fail(failed, start, &ExecutionError{Migration: failed.Migration, Err: scriptErr.Err})
	}

	owner := report.Entries[0].Migration
	execErr := &ExecutionError{Migration: owner, Err: err}

	for i := 1; i < len(report.Entries); i++ {
		report.Entries[i].State = StateFailed
		report.Entries[i].Err = execErr
	}

	return e.fail(&report.Entries[0], start, execErr)
}

func (e *Executor) readScript(m migration.Migration) (string, error) {
	path := filepath.Join(e.dir, m.Name)

	data, err := vfs.ReadFile(e.fs, path)
	if err != nil {
		return "", fmt.Errorf("reading script %s: %w", path, err)
	}

	return string(data), nil
}

func (e *Executor) observe(outcome string, d time.Duration) {
	if e.recorder != nil {
		e.recorder.ObserveMigration(outcome, d)
	}
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
