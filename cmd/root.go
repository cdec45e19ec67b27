package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Offline bool
}

// NewRootCommand creates the vault command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Vault - partner ledger backed by Google Sheets",
		Long:  "Serves the partner finance API and runs maintenance tasks against the ledger spreadsheet.",
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "use an in-memory spreadsheet instead of Google Sheets")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInitSheetsCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewMigrateDatesCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
