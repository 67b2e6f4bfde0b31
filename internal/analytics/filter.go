package analytics

import (
	"fmt"

	"spendlens/internal/core"
)

// Range narrows the record set to an inclusive date interval before
// aggregation. Either bound may be zero. When any bound is set, undated
// records are excluded.
type Range struct {
	From core.Date
	To   core.Date
}

// IsZero reports whether the range keeps every record.
func (r Range) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

func (r Range) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To.Time) {
		return fmt.Errorf("%w: from %s is after to %s", core.ErrInvalidInput, r.From, r.To)
	}
	return nil
}

// Apply returns the expenses inside the range. The input is not modified.
func (r Range) Apply(expenses []core.Expense) []core.Expense {
	if r.IsZero() {
		return expenses
	}
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		if !r.From.IsZero() && e.Date.Before(r.From.Time) {
			continue
		}
		if !r.To.IsZero() && e.Date.After(r.To.Time) {
			continue
		}
		out = append(out, e)
	}
	return out
}
