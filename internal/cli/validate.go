package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqasim81/ledger-migrate/internal/resolver"
)

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "validate",
	Short: "Check applied migrations against local files",
	Long: `Compare every migration recorded in the ledger with the local file of
the same name. Exits non-zero when a file changed after it was applied or
no longer exists.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, cmd.ErrOrStderr())

	drifts, err := s.runner.Validate(commandContext(cmd))

	out := cmd.OutOrStdout()

	if err != nil && !errors.Is(err, resolver.ErrDrift) {
		return err //nolint:wrapcheck // runner errors carry context
	}

	if len(drifts) == 0 {
		fmt.Fprintln(out, "No drift detected.")
		return nil
	}

	for _, d := range drifts {
		fmt.Fprintf(out, "  %s\n", d)
	}

	return err //nolint:wrapcheck // wraps resolver.ErrDrift
}
