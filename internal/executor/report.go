package executor

import (
	"fmt"
	"io"
	"time"

	"github.com/aqasim81/ledger-migrate/internal/migration"
)

// State is the position of a planned migration in its lifecycle.
type State string

// Entry states. A migration moves pending → executing → applied | failed;
// in a dry run, validated replaces applied.
const (
	StatePending   State = "pending"
	StateExecuting State = "executing"
	StateApplied   State = "applied"
	StateValidated State = "validated"
	StateFailed    State = "failed"
)

// Entry is the outcome for one planned migration.
type Entry struct {
	Migration migration.Migration
	State     State
	Duration  time.Duration
	Err       error
}

// Report is the result of one Apply call.
type Report struct {
	Entries     []Entry
	DryRun      bool
	NothingToDo bool
}

func newReport(plan []migration.Migration, dryRun bool) *Report {
	r := &Report{
		Entries:     make([]Entry, len(plan)),
		DryRun:      dryRun,
		NothingToDo: len(plan) == 0,
	}

	for i, m := range plan {
		r.Entries[i] = Entry{Migration: m, State: StatePending}
	}

	return r
}

// Count returns the number of entries in state s.
func (r *Report) Count(s State) int {
	n := 0

	for _, e := range r.Entries {
		if e.State == s {
			n++
		}
	}

	return n
}

// Render writes the human-readable run log. Entries that were never
// attempted are omitted.
func (r *Report) Render(w io.Writer) error {
	if r.NothingToDo {
		_, err := fmt.Fprintln(w, "Nothing to do")
		return err //nolint:wrapcheck // caller owns w
	}

	if r.DryRun {
		if _, err := fmt.Fprintln(w, "Performing dry-run"); err != nil {
			return err //nolint:wrapcheck // caller owns w
		}
	}

	for _, e := range r.Entries {
		if e.State == StatePending {
			continue
		}

		line := fmt.Sprintf("Migrating --> %s\n", e.Migration.Name)

		switch e.State {
		case StateApplied, StateValidated:
			line += e.Migration.Name + " SUCCESS\n"
		case StateFailed:
			if e.Err != nil {
				line += fmt.Sprintf("%s FAILED: %v\n", e.Migration.Name, e.Err)
			} else {
				line += e.Migration.Name + " FAILED\n"
			}
		}

		if _, err := io.WriteString(w, line); err != nil {
			return err //nolint:wrapcheck // caller owns w
		}
	}

	return nil
}
