package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ledger-migrate/internal/resolver"
)

var infoCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "info",
	Aliases: []string{"status"},
	Short:   "Show migration status",
	Long: `Display applied migrations in ledger order followed by pending local
files. Applied migrations whose file is gone are shown as missing; ones whose
file changed since they ran are flagged as drifted.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, cmd.ErrOrStderr())

	entries, err := s.runner.Info(commandContext(cmd))
	if err != nil {
		return err //nolint:wrapcheck // runner errors carry context
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations found.")
		return nil
	}

	if err := renderTable(infoHeader, infoRows(entries), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("rendering status table: %w", err)
	}

	return nil
}

var infoHeader = []string{"VERSION", "NAME", "STATE", "APPLIED AT"} //nolint:gochecknoglobals // fixed header

func infoRows(entries []resolver.Entry) [][]string {
	rows := make([][]string, len(entries))

	for i, e := range entries {
		state := string(e.State)
		if e.Drifted {
			state += " (drifted)"
		}

		appliedAt := ""
		if !e.AppliedAt.IsZero() {
			appliedAt = e.AppliedAt.UTC().Format(time.DateTime)
		}

		rows[i] = []string{e.Version, e.Name, state, appliedAt}
	}

	return rows
}
