package resolver

import (
	"time"

	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// State is the position of one migration in the merged view.
type State string

// Migration states.
const (
	StateApplied State = "applied"
	StateMissing State = "missing"
	StatePending State = "pending"
)

// Entry is one row of the merged local and ledger view.
type Entry struct {
	Version   string
	Name      string
	State     State
	AppliedAt time.Time
	// Drifted is set for applied rows whose local checksum changed.
	Drifted bool
}

// Status lists applied rows in ledger order followed by pending local
// files in local order.
func Status(local, applied []migration.Migration) []Entry {
	files := byName(local)
	done := byName(applied)
	entries := make([]Entry, 0, len(applied)+len(local))

	for _, a := range applied {
		e := Entry{Version: a.Version, Name: a.Name, State: StateApplied, AppliedAt: a.AppliedAt}

		l, ok := files[a.Name]
		if !ok {
			e.State = StateMissing
		} else if l.Checksum != a.Checksum {
			e.Drifted = true
		}

		entries = append(entries, e)
	}

	for _, l := range local {
		if _, ok := done[l.Name]; ok {
			continue
		}

		entries = append(entries, Entry{Version: l.Version, Name: l.Name, State: StatePending})
	}

	return entries
}
