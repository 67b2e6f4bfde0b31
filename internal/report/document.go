// Package report turns an analytics report into a presentation document and
// renders it as text, JSON or YAML.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
)

// Document is the serializable view of an analytics report. Amounts are
// plain numbers rounded half away from zero to cents, so a category total
// may differ from the engine's exact sum by up to half a cent; the percent
// change is rounded to one decimal. Consumers that need exact sums read the
// analytics.Report instead.
type Document struct {
	UserID       string                   `json:"userId,omitempty" yaml:"user_id,omitempty"`
	Reference    string                   `json:"reference" yaml:"reference"`
	Categories   []CategoryRow            `json:"categoryTotals" yaml:"category_totals"`
	Distribution []SliceRow               `json:"distribution" yaml:"distribution"`
	Trend        []TrendRow               `json:"trend" yaml:"trend"`
	Summary      SummaryRow               `json:"summary" yaml:"summary"`
	Records      analytics.NormalizeStats `json:"records" yaml:"records"`
	Insights     []InsightRow             `json:"insights,omitempty" yaml:"insights,omitempty"`
}

type CategoryRow struct {
	Category string  `json:"category" yaml:"category"`
	Amount   float64 `json:"amount" yaml:"amount"`
}

type SliceRow struct {
	Name       string  `json:"name" yaml:"name"`
	Value      float64 `json:"value" yaml:"value"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

type TrendRow struct {
	Month string  `json:"month" yaml:"month"`
	Label string  `json:"label" yaml:"label"`
	Total float64 `json:"total" yaml:"total"`
}

type SummaryRow struct {
	CurrentMonthTotal   float64  `json:"currentMonthTotal" yaml:"current_month_total"`
	CurrentMonthCount   int      `json:"currentMonthCount" yaml:"current_month_count"`
	LastMonthTotal      float64  `json:"lastMonthTotal" yaml:"last_month_total"`
	PercentChange       float64  `json:"percentChange" yaml:"percent_change"`
	AverageMonthlySpend float64  `json:"averageMonthlySpend" yaml:"average_monthly_spend"`
	TopCategories       []string `json:"topCategories" yaml:"top_categories"`
	TopCategoriesLabel  string   `json:"topCategoriesLabel" yaml:"top_categories_label"`
}

type InsightRow struct {
	Text        string    `json:"text" yaml:"text"`
	Type        string    `json:"type" yaml:"type"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generated_at"`
}

// FromReport builds the document for r.
func FromReport(r analytics.Report) Document {
	doc := Document{
		Reference:    r.Reference.String(),
		Categories:   make([]CategoryRow, 0, len(r.Categories)),
		Distribution: make([]SliceRow, 0, len(r.Distribution)),
		Trend:        make([]TrendRow, 0, len(r.Trend)),
		Records:      r.Stats,
	}
	for _, c := range r.Categories {
		doc.Categories = append(doc.Categories, CategoryRow{Category: c.Category.String(), Amount: money(c.Amount)})
	}
	for _, s := range r.Distribution {
		doc.Distribution = append(doc.Distribution, SliceRow{
			Name:       s.Name.String(),
			Value:      money(s.Value),
			Percentage: s.Percentage.InexactFloat64(),
		})
	}
	for _, p := range r.Trend {
		doc.Trend = append(doc.Trend, TrendRow{Month: p.Month.String(), Label: p.Label, Total: money(p.Total)})
	}

	s := r.Summary
	top := s.TopCategories.Names()
	if top == nil {
		top = []string{}
	}
	doc.Summary = SummaryRow{
		CurrentMonthTotal:   money(s.CurrentMonthTotal),
		CurrentMonthCount:   s.CurrentMonthCount,
		LastMonthTotal:      money(s.LastMonthTotal),
		PercentChange:       core.RoundTenth(s.PercentChange).InexactFloat64(),
		AverageMonthlySpend: money(s.AverageMonthlySpend),
		TopCategories:       top,
		TopCategoriesLabel:  s.TopCategories.String(),
	}
	return doc
}

// WithInsights attaches insights to the document.
func (d Document) WithInsights(insights []core.Insight) Document {
	d.Insights = make([]InsightRow, 0, len(insights))
	for _, in := range insights {
		d.Insights = append(d.Insights, InsightRow{Text: in.Text, Type: string(in.Type), GeneratedAt: in.GeneratedAt})
	}
	return d
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
