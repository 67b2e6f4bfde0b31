package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"spendlens/internal/analytics"
	"spendlens/internal/cli"
	"spendlens/internal/core"
	"spendlens/internal/csvfile"
	"spendlens/internal/insights"
	"spendlens/internal/log"
	"spendlens/internal/report"
)

type reportFlags struct {
	format   string
	ref      string
	csvPath  string
	userID   string
	from     string
	to       string
	insights bool
}

func newReportCmd(a *app) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the spending report for a user or a CSV file",
		Example: `  spendlens report --user alice --ref 2024-03-20
  spendlens report --csv expenses.csv --format json --insights`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().StringVar(&f.ref, "ref", "", "reference date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "analyze this CSV file instead of the store")
	cmd.Flags().StringVarP(&f.userID, "user", "u", "", "user whose stored expenses are analyzed")
	cmd.Flags().StringVar(&f.from, "from", "", "only include expenses on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "only include expenses on or before YYYY-MM-DD")
	cmd.Flags().BoolVar(&f.insights, "insights", false, "generate insights for the report")
	return cmd
}

func (a *app) report(ctx context.Context, out io.Writer, f *reportFlags) error {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}
	engine := analytics.New()
	ref := engine.Today()
	if strings.TrimSpace(f.ref) != "" {
		if ref, err = analytics.ParseReferenceDate(f.ref); err != nil {
			return err
		}
	}
	var rng analytics.Range
	if rng.From, err = optionalDate(f.from); err != nil {
		return err
	}
	if rng.To, err = optionalDate(f.to); err != nil {
		return err
	}

	records, err := a.loadRecords(ctx, f)
	if err != nil {
		return err
	}

	rep, err := engine.ComputeRange(records, ref, rng)
	if err != nil {
		return err
	}
	a.logger.WithComponent(log.ComponentAnalytics).Debug("Computed report",
		log.FieldReference, ref.String(),
		log.FieldRecords, rep.Stats.Total,
		log.FieldDropped, rep.Stats.Dropped,
		log.FieldUndated, rep.Stats.Undated)

	doc := report.FromReport(rep)
	doc.UserID = f.userID
	if f.insights {
		generated, err := a.generateInsights(ctx, records, rng, rep)
		if err != nil {
			return err
		}
		doc = doc.WithInsights(generated)
	}
	return report.Render(out, doc, format)
}

func (a *app) loadRecords(ctx context.Context, f *reportFlags) ([]core.RawExpense, error) {
	if f.csvPath != "" {
		return csvfile.ReadFile(f.csvPath, f.userID)
	}
	if strings.TrimSpace(f.userID) == "" {
		return nil, fmt.Errorf("%w: --user or --csv is required", core.ErrMissingUser)
	}
	res, err := cli.InitStore(ctx, a.logger, a.cfg)
	if err != nil {
		return nil, err
	}
	defer res.Cleanup()
	return res.Store.ListExpenses(ctx, f.userID)
}

// generateInsights runs the configured generator on the same records the
// report was built from. An empty set yields no insights rather than an
// error.
func (a *app) generateInsights(ctx context.Context, records []core.RawExpense, rng analytics.Range, rep analytics.Report) ([]core.Insight, error) {
	gen, closeGen := cli.InitGenerator(ctx, a.logger, a.cfg)
	defer closeGen()

	expenses, _ := analytics.Normalize(records)
	out, err := gen.Generate(ctx, insights.Input{Expenses: rng.Apply(expenses), Report: rep})
	if errors.Is(err, insights.ErrNoExpenses) {
		a.logger.Warn("No usable expenses, skipping insights")
		return nil, nil
	}
	return out, err
}

func optionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
