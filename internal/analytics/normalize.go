// Package analytics turns raw expense records into spending aggregates:
// per-category totals and distribution, a six month trend, and a monthly
// summary. Every function here is pure; outputs are rebuilt from the input on
// each call and inputs are never modified.
package analytics

import (
	"strings"

	"spendlens/internal/core"
)

// NormalizeStats counts what happened to the input during normalization.
type NormalizeStats struct {
	Total   int `json:"total" yaml:"total"`
	Kept    int `json:"kept" yaml:"kept"`
	Dropped int `json:"dropped" yaml:"dropped"`
	Undated int `json:"undated" yaml:"undated"`
}

// Normalize keeps the records that have a non-empty category and a finite
// numeric amount and drops the rest. Records without a usable date are kept
// with a zero Date; they count toward category totals only.
func Normalize(raw []core.RawExpense) ([]core.Expense, NormalizeStats) {
	stats := NormalizeStats{Total: len(raw)}
	out := make([]core.Expense, 0, len(raw))

	for _, r := range raw {
		category := strings.TrimSpace(r.Category)
		if category == "" {
			stats.Dropped++
			continue
		}
		amount, ok := r.AmountValue()
		if !ok {
			stats.Dropped++
			continue
		}
		date, ok := r.CalendarDate()
		if !ok {
			stats.Undated++
		}
		out = append(out, core.Expense{
			ID:          r.ID,
			UserID:      r.UserID,
			Category:    category,
			Amount:      amount,
			Date:        date,
			Description: r.Description,
			Notes:       r.Notes,
		})
	}

	stats.Kept = len(out)
	return out, stats
}
