package analytics

import (
	"github.com/shopspring/decimal"

	"spendlens/internal/core"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category core.Category   `json:"category" yaml:"category"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
}

// DistributionSlice is one category's share of total spend.
type DistributionSlice struct {
	Name       core.Category   `json:"name" yaml:"name"`
	Value      decimal.Decimal `json:"value" yaml:"value"`
	Percentage decimal.Decimal `json:"percentage" yaml:"percentage"`
}

// AggregateCategories returns one total per category in canonical order, zero
// totals included, and the distribution over the categories with a positive
// total. Records whose category is not in the category set are ignored.
func AggregateCategories(expenses []core.Expense) ([]CategoryTotal, []DistributionSlice) {
	sums := categorySums(expenses)

	totals := make([]CategoryTotal, 0, core.NumCategories)
	spend := decimal.Zero
	for _, c := range core.Categories() {
		totals = append(totals, CategoryTotal{Category: c, Amount: sums[c]})
		spend = spend.Add(sums[c])
	}

	distribution := make([]DistributionSlice, 0, core.NumCategories)
	for _, t := range totals {
		if !t.Amount.IsPositive() {
			continue
		}
		pct := decimal.Zero
		if spend.IsPositive() {
			pct = core.RoundTenth(t.Amount.Div(spend).Mul(hundred))
		}
		distribution = append(distribution, DistributionSlice{
			Name:       t.Category,
			Value:      t.Amount,
			Percentage: pct,
		})
	}

	return totals, distribution
}

func categorySums(expenses []core.Expense) [core.NumCategories]decimal.Decimal {
	var sums [core.NumCategories]decimal.Decimal
	for i := range sums {
		sums[i] = decimal.Zero
	}
	for _, e := range expenses {
		c, ok := core.ParseCategory(e.Category)
		if !ok {
			continue
		}
		sums[c] = sums[c].Add(e.Amount)
	}
	return sums
}
