package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"

	"github.com/aqasim81/ledger-migrate/internal/config"
)

// version is the CLI version reported by --version.
var version = semver.Version{Minor: 1, Build: semver.Commit()} //nolint:gochecknoglobals // build metadata

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the migrate CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Version: version.String(),
	Short:   "Versioned SQL migrations tracked in a database ledger",
	Long: `migrate applies versioned SQL scripts (V<version>__<description>.sql)
in order and records each one in a ledger table so it never runs twice.
PostgreSQL and SQLite are supported.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", "migrate.yml", "path to configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "optional dotenv file with MIGRATE_* variables")
	rootCmd.PersistentFlags().String("database-type", "", "database type (postgres, sqlite)")
	rootCmd.PersistentFlags().String("database-url", "", "database connection string or SQLite path")
	rootCmd.PersistentFlags().String("migrations-dir", "", "path to migration files")
	rootCmd.PersistentFlags().String("table", "", "ledger table name")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus textfile metrics here after apply")
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}

// loadConfig loads configuration with precedence: flag > env > file.
func loadConfig(cmd *cobra.Command) error {
	if envFile, err := cmd.Flags().GetString("env-file"); err == nil && envFile != "" {
		if err := config.LoadDotEnv(envFile, !cmd.Flags().Changed("env-file")); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
	}

	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.MergeEnv(cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// stringFlags maps CLI flags to the config fields they override.
func stringFlags(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"database-type":  &cfg.DatabaseType,
		"database-url":   &cfg.DatabaseURL,
		"migrations-dir": &cfg.MigrationsDir,
		"table":          &cfg.Table,
		"log-level":      &cfg.LogLevel,
		"log-format":     &cfg.LogFormat,
		"metrics-file":   &cfg.MetricsFile,
	}
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	for name, dst := range stringFlags(cfg) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
}
