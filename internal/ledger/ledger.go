// Package ledger defines the contract between the migration engine and the
// database that both runs scripts and stores the record of applied ones.
package ledger

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// Supported database types.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// DefaultTable is the ledger table name used when none is configured.
const DefaultTable = "schema_version"

var identifierPattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once
	`^[A-Za-z_][A-Za-z0-9_]*$`,
)

// Gateway is the database backend seen by the engine.
//
// FetchAll returns records in insertion order. Append is only called after
// the corresponding script has been executed successfully.
type Gateway interface {
	// EnsureTable creates the ledger table if it does not exist.
	EnsureTable(ctx context.Context) error
	// FetchAll returns every recorded migration in installed order.
	FetchAll(ctx context.Context) ([]migration.Migration, error)
	// Append records m as applied.
	Append(ctx context.Context, m migration.Migration) error
	// Execute runs one script. Each call commits independently.
	Execute(ctx context.Context, script string) error
	// ExecuteSession runs all scripts in a single session and rolls back.
	ExecuteSession(ctx context.Context, scripts []string) error
	// Close releases the underlying connections.
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Type             string
	URL              string
	Table            string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
}

// SplitTableName validates a possibly schema-qualified table name and
// returns its parts. An empty name yields DefaultTable.
func SplitTableName(name string) ([]string, error) {
	if name == "" {
		return []string{DefaultTable}, nil
	}

	parts := strings.Split(name, ".")
	if len(parts) > 2 { //nolint:mnd // schema.table at most
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}

	for _, p := range parts {
		if !identifierPattern.MatchString(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
	}

	return parts, nil
}
