package main

import (
	"github.com/spf13/cobra"

	"spendlens/internal/cli"
	"spendlens/internal/config"
	"spendlens/internal/log"
)

// app carries what every subcommand needs once the root pre-run has loaded
// it.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "spendlens",
		Short: "Expense analytics: category totals, monthly trend and insights",
		Long: `spendlens stores expenses per user and turns them into a spending report:
category totals and distribution, a six month trend, a month over month
summary and short written insights.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			// logs go to stderr so report output can be piped
			a.logger = cli.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(a),
		newReportCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
	)
	return root
}
