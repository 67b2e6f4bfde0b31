package analytics

import (
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// TrendMonths is the length of the rolling trend window.
const TrendMonths = 6

// TrendPoint is the total spend of one month in the trend window.
type TrendPoint struct {
	Month MonthKey        `json:"-" yaml:"-"`
	Label string          `json:"label" yaml:"label"`
	Total decimal.Decimal `json:"total" yaml:"total"`
}

// BuildTrend returns exactly TrendMonths points, oldest first, ending at the
// month of ref. Months without records total zero. Undated records and records
// outside the window are ignored.
func BuildTrend(expenses []core.Expense, ref core.Date) []TrendPoint {
	end := MonthOf(ref)
	start := end.Add(-(TrendMonths - 1))

	points := make([]TrendPoint, TrendMonths)
	for i := range points {
		k := start.Add(i)
		points[i] = TrendPoint{Month: k, Label: k.Label(), Total: decimal.Zero}
	}

	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		idx := MonthOf(e.Date).Sub(start)
		if idx < 0 || idx >= TrendMonths {
			continue
		}
		points[idx].Total = points[idx].Total.Add(e.Amount)
	}
	return points
}
