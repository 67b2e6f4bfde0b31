// Package worker refreshes derived data when a user's expenses change.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/insights"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/services"
	"spendlens/internal/sheets"
)

// refreshes older than runRetention are forgotten; a late message for such a
// user triggers one redundant refresh.
const runRetention = time.Hour

type InsightGenerator interface {
	Generate(ctx context.Context, userID string, ref core.Date) ([]core.Insight, error)
}

type DashboardSource interface {
	Dashboard(ctx context.Context, userID string, q services.DashboardQuery) (services.Dashboard, error)
}

// InsightsWorker regenerates a user's insights and optionally exports the
// report each time an expense change message arrives.
type InsightsWorker struct {
	insights  InsightGenerator
	dashboard DashboardSource
	exporter  sheets.ReportExporter
	logger    *log.Logger
	now       func() time.Time

	mu        sync.Mutex
	lastRun   map[string]time.Time
	lastPrune time.Time
}

// NewInsightsWorker creates a worker. exporter may be nil.
func NewInsightsWorker(gen InsightGenerator, dashboard DashboardSource, exporter sheets.ReportExporter, logger *log.Logger) *InsightsWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &InsightsWorker{
		insights:  gen,
		dashboard: dashboard,
		exporter:  exporter,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
		lastRun:   make(map[string]time.Time),
	}
}

// HandleExpenseChanged processes one message. Messages published before the
// user's last completed refresh are skipped since that refresh already saw
// their change. A returned error makes the consumer requeue the message.
func (w *InsightsWorker) HandleExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	started := w.now()
	if w.covered(msg) {
		w.logger.DebugContext(ctx, "Skipping message already covered by a refresh",
			log.FieldUserID, msg.UserID,
			log.FieldOperation, msg.Op)
		return nil
	}

	w.logger.InfoContext(ctx, "Refreshing insights",
		log.FieldUserID, msg.UserID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldOperation, msg.Op)

	generated, err := w.insights.Generate(ctx, msg.UserID, core.Date{})
	switch {
	case errors.Is(err, insights.ErrNoExpenses):
		w.logger.InfoContext(ctx, "No usable expenses, keeping previous insights", log.FieldUserID, msg.UserID)
		generated = nil
	case err != nil:
		return fmt.Errorf("refresh insights: %w", err)
	}

	if w.exporter != nil {
		if err := w.export(ctx, msg.UserID, generated); err != nil {
			return err
		}
	}

	w.markRefreshed(msg.UserID, started)
	return nil
}

func (w *InsightsWorker) markRefreshed(userID string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastRun[userID] = at

	if at.Sub(w.lastPrune) < runRetention/4 {
		return
	}
	w.lastPrune = at
	cutoff := at.Add(-runRetention)
	for user, last := range w.lastRun {
		if last.Before(cutoff) {
			delete(w.lastRun, user)
		}
	}
}

func (w *InsightsWorker) covered(msg *amqp.ExpenseChangedMessage) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastRun[msg.UserID]
	return ok && !msg.Timestamp.IsZero() && msg.Timestamp.Before(last)
}

func (w *InsightsWorker) export(ctx context.Context, userID string, generated []core.Insight) error {
	d, err := w.dashboard.Dashboard(ctx, userID, services.DashboardQuery{})
	if err != nil {
		return fmt.Errorf("build report for export: %w", err)
	}
	if generated == nil {
		generated = d.Insights
	}
	doc := report.FromReport(d.Report).WithInsights(generated)
	doc.UserID = userID

	if err := w.exporter.ExportReport(ctx, userID, doc); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	w.logger.InfoContext(ctx, "Exported report", log.FieldUserID, userID, log.FieldReference, doc.Reference)
	return nil
}
