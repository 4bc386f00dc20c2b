package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "plan",
	Short: "Show execution plan for pending migrations",
	Long: `Display the migrations apply would run, in execution order, without
touching the database schema.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, cmd.ErrOrStderr())

	plan, err := s.runner.Plan(commandContext(cmd))
	if err != nil {
		return err //nolint:wrapcheck // runner errors carry context
	}

	out := cmd.OutOrStdout()

	if len(plan) == 0 {
		fmt.Fprintln(out, "Nothing to do")
		return nil
	}

	fmt.Fprintf(out, "%d pending migration(s):\n", len(plan))

	for i, m := range plan {
		fmt.Fprintf(out, "  %d. %s (version %s)\n", i+1, m.Name, m.Version)
	}

	return nil
}
