package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arneor/vault-api/migration"
	"github.com/arneor/vault-api/services"
)

// NewInitSheetsCommand creates missing sheets and seeds the partners.
func NewInitSheetsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "init-sheets",
		Short:        "Create missing sheets with their header row",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.ledger.InitializeSheets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintln(out, "All sheets already exist")
				return nil
			}
			fmt.Fprintf(out, "Created %s\n", strings.Join(created, ", "))
			return nil
		},
	}
}

// NewExportCommand writes one CSV export to stdout or a file.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:          "export <kind>",
		Short:        "Export a report as CSV",
		Long:         fmt.Sprintf("Export a report as CSV. Kinds: %v", services.ReportKinds),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := services.ParseReportKind(args[0])
			if err != nil {
				return err
			}
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return a.ledger.WriteReport(cmd.Context(), w, kind)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

// NewSnapshotCommand records this month's totals in Monthly_Summary.
func NewSnapshotCommand(opts *RootOptions) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:          "snapshot",
		Short:        "Record the current month in Monthly_Summary",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.ledger.RecordMonthlySummary(services.WithActor(cmd.Context(), "cli"), notes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %d: revenue %s, expenses %s, net %s\n",
				sum.Month, sum.Year, sum.TotalRevenue, sum.TotalExpenses, sum.NetProfitLoss)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "notes stored with the summary")
	return cmd
}

// NewMigrateDatesCommand rewrites ledger dates to YYYY-MM-DD.
func NewMigrateDatesCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:          "migrate-dates",
		Short:        "Normalize the Date column of Transactions and Inter_Partner_Transfers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			m := &migration.Migrator{
				Store:  a.store,
				Retry:  services.DefaultRetryPolicy(),
				Loc:    a.ledger.Location(),
				DryRun: dryRun,
			}
			results, err := m.MigrateAll(cmd.Context())
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%-24s migrated=%d skipped=%d errors=%d\n", r.Sheet, r.Migrated, r.Skipped, r.Errors)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report the cells that would change")
	return cmd
}
