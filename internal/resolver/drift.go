package resolver

import (
	"fmt"

	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// DriftKind classifies a disagreement between the ledger and local files.
type DriftKind string

// Drift kinds.
const (
	DriftChecksum DriftKind = "checksum"
	DriftMissing  DriftKind = "missing"
)

// Drift describes one applied migration that no longer matches local state.
type Drift struct {
	Kind    DriftKind
	Applied migration.Migration
	// Local is the zero value for DriftMissing.
	Local migration.Migration
}

func (d Drift) String() string {
	switch d.Kind {
	case DriftChecksum:
		return fmt.Sprintf("%s: checksum changed since apply (recorded %s, local %s)",
			d.Applied.Name, short(d.Applied.Checksum), short(d.Local.Checksum))
	case DriftMissing:
		return d.Applied.Name + ": applied but no longer present locally"
	default:
		return d.Applied.Name + ": " + string(d.Kind)
	}
}

func short(checksum string) string {
	const n = 12
	if len(checksum) <= n {
		return checksum
	}

	return checksum[:n]
}

// Verify compares every applied migration with the local file of the same
// name, in ledger order.
func Verify(local, applied []migration.Migration) []Drift {
	files := byName(local)

	var drifts []Drift

	for _, a := range applied {
		l, ok := files[a.Name]

		switch {
		case !ok:
			drifts = append(drifts, Drift{Kind: DriftMissing, Applied: a})
		case l.Checksum != a.Checksum:
			drifts = append(drifts, Drift{Kind: DriftChecksum, Applied: a, Local: l})
		}
	}

	return drifts
}
