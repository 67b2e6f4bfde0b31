package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/storage"
)

// DashboardQuery selects the reference date and an optional date window.
// A zero Reference means today.
type DashboardQuery struct {
	Reference core.Date
	From      core.Date
	To        core.Date
}

// Dashboard is the analytics view of one user.
type Dashboard struct {
	UserID   string
	Report   analytics.Report
	Insights []core.Insight
}

// ExpenseLister is the read side of ExpenseService.
type ExpenseLister interface {
	ListExpenses(ctx context.Context, userID string) ([]core.RawExpense, error)
}

type AnalyticsService struct {
	expenses ExpenseLister
	insights storage.InsightStore
	engine   *analytics.Engine
	logger   *log.Logger
}

func NewAnalyticsService(expenses ExpenseLister, insights storage.InsightStore, engine *analytics.Engine, logger *log.Logger) *AnalyticsService {
	if engine == nil {
		engine = analytics.New()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AnalyticsService{
		expenses: expenses,
		insights: insights,
		engine:   engine,
		logger:   logger.WithComponent(log.ComponentAnalytics),
	}
}

// Dashboard loads the user's records and stored insights concurrently and
// computes the report.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string, q DashboardQuery) (Dashboard, error) {
	if userID == "" {
		return Dashboard{}, core.ErrMissingUser
	}
	rng := analytics.Range{From: q.From, To: q.To}
	if err := rng.Validate(); err != nil {
		return Dashboard{}, err
	}

	var (
		records  []core.RawExpense
		insights []core.Insight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.expenses.ListExpenses(gctx, userID)
		return err
	})
	g.Go(func() error {
		if s.insights == nil {
			return nil
		}
		var err error
		insights, err = s.insights.ListInsights(gctx, userID)
		if err != nil {
			return fmt.Errorf("list insights: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	report, err := s.Report(records, q.Reference, rng)
	if err != nil {
		return Dashboard{}, err
	}
	if insights == nil {
		insights = []core.Insight{}
	}

	s.logger.DebugContext(ctx, "Computed dashboard",
		log.FieldUserID, userID,
		log.FieldReference, report.Reference.String(),
		log.FieldRecords, report.Stats.Total,
		log.FieldDropped, report.Stats.Dropped,
		log.FieldUndated, report.Stats.Undated)

	return Dashboard{UserID: userID, Report: report, Insights: insights}, nil
}

// Report runs the engine over records. A zero ref means today.
func (s *AnalyticsService) Report(records []core.RawExpense, ref core.Date, rng analytics.Range) (analytics.Report, error) {
	if ref.IsZero() {
		ref = s.engine.Today()
	}
	return s.engine.ComputeRange(records, ref, rng)
}
