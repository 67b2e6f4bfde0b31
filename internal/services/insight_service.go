package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/insights"
	"spendlens/internal/log"
	"spendlens/internal/storage"
)

// InsightService generates, stores and lists a user's insights.
type InsightService struct {
	expenses  ExpenseLister
	store     storage.InsightStore
	generator insights.Generator
	engine    *analytics.Engine
	now       func() time.Time
	logger    *log.Logger
}

// NewInsightService creates the service. A nil generator means the rule
// based one.
func NewInsightService(expenses ExpenseLister, store storage.InsightStore, generator insights.Generator, engine *analytics.Engine, logger *log.Logger) *InsightService {
	if generator == nil {
		generator = insights.Rules{}
	}
	if engine == nil {
		engine = analytics.New()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &InsightService{
		expenses:  expenses,
		store:     store,
		generator: generator,
		engine:    engine,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentInsights),
	}
}

// Generate builds a fresh insight set for userID from the stored records and
// replaces the previous set. ref may be zero for today.
func (s *InsightService) Generate(ctx context.Context, userID string, ref core.Date) ([]core.Insight, error) {
	if userID == "" {
		return nil, core.ErrMissingUser
	}
	records, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ref.IsZero() {
		ref = s.engine.Today()
	}
	expenses, stats := analytics.Normalize(records)
	if len(expenses) == 0 {
		return nil, insights.ErrNoExpenses
	}
	report := analytics.Analyze(expenses, ref, stats)

	generated, err := s.generator.Generate(ctx, insights.Input{Expenses: expenses, Report: report})
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	at := s.now().UTC()
	for i := range generated {
		generated[i].ID = uuid.NewString()
		generated[i].UserID = userID
		generated[i].GeneratedAt = at
	}
	if err := s.store.SaveInsights(ctx, userID, generated); err != nil {
		return nil, fmt.Errorf("save insights: %w", err)
	}

	s.logger.InfoContext(ctx, "Generated insights",
		log.FieldUserID, userID,
		log.FieldGenerator, s.generator.Name(),
		log.FieldCount, len(generated))
	return generated, nil
}

// List returns the latest stored insight set.
func (s *InsightService) List(ctx context.Context, userID string) ([]core.Insight, error) {
	if userID == "" {
		return nil, core.ErrMissingUser
	}
	out, err := s.store.ListInsights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return out, nil
}
