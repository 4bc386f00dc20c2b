package resolver

import (
	"errors"
	"fmt"
)

// ErrMigrationsNotFound indicates the ledger records applied migrations but
// the local directory holds none.
var ErrMigrationsNotFound = errors.New("migrations not found")

// ErrDrift indicates applied migrations no longer match their local files.
var ErrDrift = errors.New("applied migrations drifted from local files")

// MigrationsNotFoundError carries the directory that came up empty.
type MigrationsNotFoundError struct {
	Dir string
}

func (e *MigrationsNotFoundError) Error() string {
	return fmt.Sprintf("%s: ledger has applied migrations but %s contains none", ErrMigrationsNotFound, e.Dir)
}

func (e *MigrationsNotFoundError) Is(target error) bool {
	return target == ErrMigrationsNotFound
}
