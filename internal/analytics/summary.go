package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

// TopCategoryLimit is how many categories the summary ranks.
const TopCategoryLimit = 3

// NoDataLabel is how the NoData sentinel renders.
const NoDataLabel = "No data yet"

// TopCategories is the head of the category ranking. When there are no usable
// records it is the NoData sentinel instead of an empty ranking. Otherwise it
// always holds TopCategoryLimit entries: categories without spend pad the tail
// in canonical order.
type TopCategories struct {
	Ranked []CategoryTotal
	Empty  bool
}

// NoData is the ranking reported for an empty record set.
var NoData = TopCategories{Empty: true}

// IsNoData reports whether t is the NoData sentinel.
func (t TopCategories) IsNoData() bool {
	return t.Empty
}

// Names returns the ranked category names, or nil for NoData.
func (t TopCategories) Names() []string {
	if t.Empty {
		return nil
	}
	names := make([]string, len(t.Ranked))
	for i, ct := range t.Ranked {
		names[i] = ct.Category.String()
	}
	return names
}

// String joins the ranked names with ", " or renders NoDataLabel.
func (t TopCategories) String() string {
	if t.Empty {
		return NoDataLabel
	}
	return strings.Join(t.Names(), ", ")
}

// Summary is the headline view of a reference month.
type Summary struct {
	CurrentMonthTotal   decimal.Decimal
	CurrentMonthCount   int
	LastMonthTotal      decimal.Decimal
	PercentChange       decimal.Decimal
	AverageMonthlySpend decimal.Decimal
	TopCategories       TopCategories
}

// Summarize computes the reference month totals, the change against the
// previous month, the average spend over the months that have records, and
// the top categories.
func Summarize(expenses []core.Expense, ref core.Date) Summary {
	current := MonthOf(ref)
	previous := current.Add(-1)

	s := Summary{
		CurrentMonthTotal:   decimal.Zero,
		LastMonthTotal:      decimal.Zero,
		PercentChange:       decimal.Zero,
		AverageMonthlySpend: decimal.Zero,
	}

	dated := decimal.Zero
	months := make(map[MonthKey]struct{})
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		k := MonthOf(e.Date)
		months[k] = struct{}{}
		dated = dated.Add(e.Amount)

		switch k {
		case current:
			s.CurrentMonthTotal = s.CurrentMonthTotal.Add(e.Amount)
			s.CurrentMonthCount++
		case previous:
			s.LastMonthTotal = s.LastMonthTotal.Add(e.Amount)
		}
	}

	s.PercentChange = percentChange(s.CurrentMonthTotal, s.LastMonthTotal)
	if len(months) > 0 {
		s.AverageMonthlySpend = dated.Div(decimal.NewFromInt(int64(len(months))))
	}
	s.TopCategories = rankCategories(expenses)
	return s
}

func percentChange(cur, last decimal.Decimal) decimal.Decimal {
	if last.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(last).Div(last).Mul(hundred)
}

func rankCategories(expenses []core.Expense) TopCategories {
	if len(expenses) == 0 {
		return NoData
	}
	totals, _ := AggregateCategories(expenses)
	// totals arrive in canonical order; a stable sort keeps it for ties
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.GreaterThan(totals[j].Amount)
	})
	return TopCategories{Ranked: totals[:TopCategoryLimit]}
}
