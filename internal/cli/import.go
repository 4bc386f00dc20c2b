package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "import <file>",
	Short: "Record a migration as applied without running it",
	Long: `Add a migration file to the ledger without executing it, for schemas
that were changed by hand or by another tool. A bare file name is looked up
in the migrations directory. Fails if the migration is already recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(s, cmd.ErrOrStderr())

	m, err := s.runner.Import(commandContext(cmd), args[0])
	if err != nil {
		return err //nolint:wrapcheck // runner errors carry context
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (version %s, checksum %s)\n", m.Name, m.Version, m.Checksum[:12])

	return nil
}
