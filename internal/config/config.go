package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultDatabaseType  = "postgres"
	DefaultMigrationsDir = "./migrations"
	DefaultTable         = "schema_version"
	DefaultExtension     = "sql"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	EnvPrefix            = "MIGRATE_"
)

// ErrMissingDatabaseURL indicates no database URL was configured anywhere.
var ErrMissingDatabaseURL = errors.New("database URL is required (--database-url, MIGRATE_DATABASE_URL or database_url)")

// ErrInvalidDatabaseType indicates an unsupported database_type.
var ErrInvalidDatabaseType = errors.New("invalid database type")

// Config holds the application configuration loaded from file, environment, and flags.
// Env tags are relative to EnvPrefix.
type Config struct {
	DatabaseType     string        `env:"DATABASE_TYPE"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR"`
	Table            string        `env:"TABLE"`
	Extensions       []string      `env:"EXTENSIONS"        envSeparator:","`
	LockTimeout      time.Duration `env:"LOCK_TIMEOUT"`
	StatementTimeout time.Duration `env:"STATEMENT_TIMEOUT"`
	LogLevel         string        `env:"LOG_LEVEL"`
	LogFormat        string        `env:"LOG_FORMAT"`
	MetricsFile      string        `env:"METRICS_FILE"`
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseType     string   `yaml:"database_type"`
	DatabaseURL      string   `yaml:"database_url"`
	MigrationsDir    string   `yaml:"migrations_dir"`
	Table            string   `yaml:"table"`
	Extensions       []string `yaml:"extensions"`
	LockTimeout      string   `yaml:"lock_timeout"`
	StatementTimeout string   `yaml:"statement_timeout"`
	LogLevel         string   `yaml:"log_level"`
	LogFormat        string   `yaml:"log_format"`
	MetricsFile      string   `yaml:"metrics_file"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		DatabaseType:  DefaultDatabaseType,
		MigrationsDir: DefaultMigrationsDir,
		Table:         DefaultTable,
		Extensions:    []string{DefaultExtension},
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseType, raw.DatabaseType)
	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.Table, raw.Table)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)
	setString(&cfg.MetricsFile, raw.MetricsFile)

	if len(raw.Extensions) > 0 {
		cfg.Extensions = raw.Extensions
	}

	if err := setDuration(&cfg.LockTimeout, "lock_timeout", raw.LockTimeout); err != nil {
		return nil, err
	}

	if err := setDuration(&cfg.StatementTimeout, "statement_timeout", raw.StatementTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s %q: %w", key, v, err)
	}

	*dst = d

	return nil
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error when
// allowMissing is true.
func LoadDotEnv(path string, allowMissing bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) && allowMissing {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// Unset variables leave the current values in place.
func MergeEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment config: %w", err)
	}

	return nil
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}

	switch c.DatabaseType {
	case "postgres", "sqlite":
		return nil
	default:
		return fmt.Errorf("%w: %q (want postgres or sqlite)", ErrInvalidDatabaseType, c.DatabaseType)
	}
}
