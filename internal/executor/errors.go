package executor

import (
	"errors"
	"fmt"

	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// ErrExecutionFailed indicates a migration script failed to run.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrLedgerWrite indicates a script ran but could not be recorded.
var ErrLedgerWrite = errors.New("recording migration in ledger failed")

// ExecutionError names the migration whose script could not be read or
// executed.
type ExecutionError struct {
	Migration migration.Migration
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrExecutionFailed, e.Migration.Name, e.Err)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{ErrExecutionFailed, e.Err}
}

// LedgerWriteError names the migration that executed but was not recorded.
// Its changes are in the database; the ledger does not know about them.
type LedgerWriteError struct {
	Migration migration.Migration
	Err       error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLedgerWrite, e.Migration.Name, e.Err)
}

func (e *LedgerWriteError) Unwrap() []error {
	return []error{ErrLedgerWrite, e.Err}
}
