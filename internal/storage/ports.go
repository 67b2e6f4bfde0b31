package storage

import (
	"context"

	"spendlens/internal/core"
)

// ExpenseStore persists raw expense records per user. Reads return records
// exactly as stored; interpreting amounts and dates is left to the caller.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.RawExpense) (core.RawExpense, error)
	ImportExpenses(ctx context.Context, records []core.RawExpense) (int, error)
	UpdateExpense(ctx context.Context, e core.RawExpense) (core.RawExpense, error)
	GetExpense(ctx context.Context, id string) (core.RawExpense, error)
	DeleteExpense(ctx context.Context, id string) (core.RawExpense, error)
	ListExpenses(ctx context.Context, userID string) ([]core.RawExpense, error)
}

// InsightStore keeps the latest generated insight set per user.
type InsightStore interface {
	SaveInsights(ctx context.Context, userID string, insights []core.Insight) error
	ListInsights(ctx context.Context, userID string) ([]core.Insight, error)
}

// Store is a complete storage backend.
type Store interface {
	ExpenseStore
	InsightStore
	Ping(ctx context.Context) error
	Close() error
}
