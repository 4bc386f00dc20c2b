package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aqasim81/ledger-migrate/internal/config"
	"github.com/aqasim81/ledger-migrate/internal/ledger"
	"github.com/aqasim81/ledger-migrate/internal/ledger/backend"
	"github.com/aqasim81/ledger-migrate/internal/logging"
	"github.com/aqasim81/ledger-migrate/internal/metrics"
	"github.com/aqasim81/ledger-migrate/internal/runner"
)

// openGateway connects to the configured database.
var openGateway = backend.Open //nolint:gochecknoglobals // replaced in tests

// session is the per-command wiring: logger, gateway, runner and metrics.
type session struct {
	cfg     *config.Config
	log     zerolog.Logger
	gw      ledger.Gateway
	runner  *runner.Runner
	metrics *metrics.Recorder
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// openSession validates AppConfig, connects, and builds a runner. The
// caller must Close the session.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg := AppConfig
	if cfg == nil {
		cfg = config.New()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err //nolint:wrapcheck // sentinel config errors
	}

	base, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	log, _ := logging.WithRunID(base)

	log.Info().
		Str("database_type", cfg.DatabaseType).
		Str("database", config.RedactURL(cfg.DatabaseURL)).
		Str("table", cfg.Table).
		Msg("connecting")

	gw, err := openGateway(commandContext(cmd), ledger.Config{
		Type:             cfg.DatabaseType,
		URL:              cfg.DatabaseURL,
		Table:            cfg.Table,
		LockTimeout:      cfg.LockTimeout,
		StatementTimeout: cfg.StatementTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &session{cfg: cfg, log: log, gw: gw}

	opts := []runner.Option{
		runner.WithExtensions(cfg.Extensions...),
		runner.WithLogger(log),
	}

	if cfg.MetricsFile != "" {
		s.metrics = metrics.New()
		opts = append(opts, runner.WithMetrics(s.metrics))
	}

	s.runner = runner.New(gw, osfs.New(), cfg.MigrationsDir, opts...)

	return s, nil
}

// writeMetrics flushes the textfile when one is configured.
func (s *session) writeMetrics() error {
	if s.metrics == nil {
		return nil
	}

	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		return err //nolint:wrapcheck // already wrapped with the path
	}

	s.log.Debug().Str("path", s.cfg.MetricsFile).Msg("metrics written")

	return nil
}

func (s *session) Close() error {
	return s.gw.Close() //nolint:wrapcheck // gateway errors are already descriptive
}

// closeSession closes s and reports a close failure on w.
func closeSession(s *session, w io.Writer) {
	if err := s.Close(); err != nil {
		fmt.Fprintf(w, "closing database: %v\n", err)
	}
}
