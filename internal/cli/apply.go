package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply every migration that is present locally but missing from the
ledger, in version order. Each script runs in its own transaction and is
recorded after it succeeds; the first failure stops the run and keeps the
migrations applied before it.

With --dry-run, all pending scripts run in one transaction that is rolled
back, and nothing is recorded.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().Bool("dry-run", false, "run pending scripts in a rolled-back transaction without recording them")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, cmd.ErrOrStderr())

	report, applyErr := s.runner.Apply(commandContext(cmd), dryRun)

	if report != nil {
		if err := report.Render(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	return errors.Join(applyErr, s.writeMetrics())
}
