package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spendlens/internal/cli"
	"spendlens/internal/core"
	"spendlens/internal/csvfile"
	"spendlens/internal/services"
	"spendlens/internal/storage"
)

func newImportCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import expenses from a CSV file into the store",
		Long: `Import reads rows with the columns id, category, amount, date, description,
notes. Rows are stored as read; malformed amounts or dates are kept and
ignored by the analytics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.importCSV(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records for %s\n", n, userID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "owner of the imported records (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (a *app) importCSV(ctx context.Context, userID, path string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, core.ErrMissingUser
	}
	records, err := csvfile.ReadFile(path, userID)
	if err != nil {
		return 0, err
	}

	res, err := cli.InitStore(ctx, a.logger, a.cfg)
	if err != nil {
		return 0, err
	}
	defer res.Cleanup()
	publisher, closePublisher := cli.InitPublisher(a.logger, a.cfg)
	defer closePublisher()

	return services.NewExpenseService(res.Store, publisher, nil, a.logger).ImportExpenses(ctx, userID, records)
}

func newExportCmd(a *app) *cobra.Command {
	var (
		userID string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's stored expenses as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := cli.InitStore(cmd.Context(), a.logger, a.cfg)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			records, err := services.NewExpenseService(res.Store, nil, nil, a.logger).
				SearchExpenses(cmd.Context(), userID, services.ExpenseFilter{Sort: services.SortAsc})
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return csvfile.Write(cmd.OutOrStdout(), records)
			}
			if err := csvfile.WriteFile(output, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(records), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user to export (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DataBackend != "sqlite" {
				return fmt.Errorf("migrate needs DATA_BACKEND=sqlite, got %q", a.cfg.DataBackend)
			}
			version, err := storage.RunMigrations(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
}
