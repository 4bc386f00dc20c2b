// Package resolver decides which local migrations still need to run and
// reports how local files and the ledger disagree.
package resolver

import (
	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// Resolve returns the local migrations whose names are absent from applied,
// in local order. Identity is the file name; checksums are ignored.
//
// When applied is non-empty but local is empty, the directory is assumed to
// be wrong and a *MigrationsNotFoundError naming dir is returned.
func Resolve(local, applied []migration.Migration, dir string) ([]migration.Migration, error) {
	if len(local) == 0 {
		if len(applied) > 0 {
			return nil, &MigrationsNotFoundError{Dir: dir}
		}

		return []migration.Migration{}, nil
	}

	done := byName(applied)
	pending := make([]migration.Migration, 0, len(local))

	for _, m := range local {
		if _, ok := done[m.Name]; ok {
			continue
		}

		pending = append(pending, m)
	}

	return pending, nil
}

func byName(ms []migration.Migration) map[string]migration.Migration {
	idx := make(map[string]migration.Migration, len(ms))
	for _, m := range ms {
		idx[m.Name] = m
	}

	return idx
}
