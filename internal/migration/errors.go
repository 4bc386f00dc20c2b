package migration

import "errors"

// ErrDuplicateVersion indicates two migration files resolve to the same version.
var ErrDuplicateVersion = errors.New("duplicate migration version")
