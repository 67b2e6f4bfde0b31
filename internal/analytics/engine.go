package analytics

import (
	"fmt"
	"time"

	"spendlens/internal/core"
)

// Report is everything the engine derives from one record set.
type Report struct {
	Reference    core.Date
	Categories   []CategoryTotal
	Distribution []DistributionSlice
	Trend        []TrendPoint
	Summary      Summary
	Stats        NormalizeStats
}

// Engine wires normalization and the aggregators together. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used when no reference date is given.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine that defaults to the wall clock.
func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the engine's current calendar date.
func (e *Engine) Today() core.Date {
	return core.DateOf(e.now())
}

// Compute builds a report for records as seen from ref.
func (e *Engine) Compute(records []core.RawExpense, ref core.Date) (Report, error) {
	return e.ComputeRange(records, ref, Range{})
}

// ComputeNow builds a report with today as the reference date. A clock that
// yields the zero time is reported as ErrInvalidInput.
func (e *Engine) ComputeNow(records []core.RawExpense) (Report, error) {
	return e.ComputeRange(records, e.Today(), Range{})
}

// ComputeRange builds a report over the records inside rng. A zero Range keeps
// every record.
func (e *Engine) ComputeRange(records []core.RawExpense, ref core.Date, rng Range) (Report, error) {
	if ref.IsZero() {
		return Report{}, fmt.Errorf("%w: reference date is required", core.ErrInvalidInput)
	}
	if err := rng.Validate(); err != nil {
		return Report{}, err
	}

	expenses, stats := Normalize(records)
	expenses = rng.Apply(expenses)
	return Analyze(expenses, ref, stats), nil
}

// Analyze aggregates already normalized expenses.
func Analyze(expenses []core.Expense, ref core.Date, stats NormalizeStats) Report {
	categories, distribution := AggregateCategories(expenses)
	return Report{
		Reference:    ref,
		Categories:   categories,
		Distribution: distribution,
		Trend:        BuildTrend(expenses, ref),
		Summary:      Summarize(expenses, ref),
		Stats:        stats,
	}
}

// Compute builds a report with a default engine.
func Compute(records []core.RawExpense, ref core.Date) (Report, error) {
	return New().Compute(records, ref)
}

// ParseReferenceDate parses a YYYY-MM-DD reference date.
func ParseReferenceDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: reference date %q", core.ErrInvalidInput, s)
	}
	return d, nil
}
