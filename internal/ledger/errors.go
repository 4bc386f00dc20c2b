package ledger

import (
	"errors"
	"fmt"
)

// ErrTableCreation indicates the ledger table could not be created.
var ErrTableCreation = errors.New("creating ledger table")

// ErrInvalidTableName indicates the configured ledger table name is not a
// plain SQL identifier.
var ErrInvalidTableName = errors.New("invalid ledger table name")

// ErrUnknownBackend indicates the configured database type has no gateway.
var ErrUnknownBackend = errors.New("unknown database type")

// ErrNonTransactionalScript indicates a script cannot run inside the single
// rolled-back transaction used for a dry run.
var ErrNonTransactionalScript = errors.New("script cannot run inside a transaction")

// ScriptError attributes a session failure to the script at Index of the
// batch passed to ExecuteSession.
type ScriptError struct {
	Index int
	Err   error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %d: %v", e.Index, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
