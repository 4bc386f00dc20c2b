package runner

import "errors"

// ErrAlreadyApplied indicates an imported migration is already in the ledger.
var ErrAlreadyApplied = errors.New("migration already recorded in ledger")

// ErrInvalidMigrationName indicates a file name outside the naming convention.
var ErrInvalidMigrationName = errors.New("file name does not follow V<version>__<description>.<extension>")

// ErrUnsupportedExtension indicates a file whose extension the scanner is not
// configured to pick up.
var ErrUnsupportedExtension = errors.New("migration file extension not accepted")
