package analytics

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func marchRecords() []core.RawExpense {
	return []core.RawExpense{
		{ID: "1", Category: "Food", Amount: 50.0, Date: "2024-03-01"},
		{ID: "2", Category: "Food", Amount: 30.0, Date: "2024-03-15"},
		{ID: "3", Category: "Transport", Amount: 20.0, Date: "2024-02-01"},
	}
}

func TestCompute_MarchScenario(t *testing.T) {
	report, err := Compute(marchRecords(), core.NewDate(2024, 3, 20))
	require.NoError(t, err)

	s := report.Summary
	assertDecimal(t, "80", s.CurrentMonthTotal)
	assert.Equal(t, 2, s.CurrentMonthCount)
	assertDecimal(t, "20", s.LastMonthTotal)
	assertDecimal(t, "300", s.PercentChange)
	assertDecimal(t, "50", s.AverageMonthlySpend)

	require.Len(t, report.Categories, core.NumCategories)
	for _, ct := range report.Categories {
		switch ct.Category {
		case core.Food:
			assertDecimal(t, "80", ct.Amount)
		case core.Transport:
			assertDecimal(t, "20", ct.Amount)
		default:
			assertDecimal(t, "0", ct.Amount)
		}
	}

	require.Len(t, report.Distribution, 2)
	assert.Equal(t, core.Food, report.Distribution[0].Name)
	assertDecimal(t, "80", report.Distribution[0].Value)
	assertDecimal(t, "80", report.Distribution[0].Percentage)
	assert.Equal(t, core.Transport, report.Distribution[1].Name)
	assertDecimal(t, "20", report.Distribution[1].Percentage)

	assert.False(t, s.TopCategories.IsNoData())
	assert.Equal(t, []string{"Food", "Transport", "Entertainment"}, s.TopCategories.Names())
	assert.Equal(t, "Food, Transport, Entertainment", s.TopCategories.String())

	labels := make([]string, len(report.Trend))
	for i, p := range report.Trend {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"Oct 2023", "Nov 2023", "Dec 2023", "Jan 2024", "Feb 2024", "Mar 2024"}, labels)
	assertDecimal(t, "20", report.Trend[4].Total)
	assertDecimal(t, "80", report.Trend[5].Total)
}

func TestCompute_EmptyScenario(t *testing.T) {
	report, err := Compute(nil, core.NewDate(2024, 3, 20))
	require.NoError(t, err)

	require.Len(t, report.Categories, core.NumCategories)
	for _, ct := range report.Categories {
		assertDecimal(t, "0", ct.Amount)
	}
	assert.Empty(t, report.Distribution)
	require.Len(t, report.Trend, TrendMonths)
	for _, p := range report.Trend {
		assertDecimal(t, "0", p.Total)
	}
	assert.True(t, report.Summary.TopCategories.IsNoData())
	assert.Equal(t, NoDataLabel, report.Summary.TopCategories.String())
	assert.Nil(t, report.Summary.TopCategories.Names())
	assertDecimal(t, "0", report.Summary.AverageMonthlySpend)
	assertDecimal(t, "0", report.Summary.PercentChange)
}

func TestCompute_MalformedRecordsDropped(t *testing.T) {
	records := append(marchRecords(),
		core.RawExpense{ID: "nan", Category: "Food", Amount: "NaN", Date: "2024-03-02"},
		core.RawExpense{ID: "nan-float", Category: "Food", Amount: math.NaN(), Date: "2024-03-02"},
		core.RawExpense{ID: "no-category", Amount: 999.0, Date: "2024-03-02"},
		core.RawExpense{ID: "blank-category", Category: "  ", Amount: 999.0, Date: "2024-03-02"},
	)

	report, err := Compute(records, core.NewDate(2024, 3, 20))
	require.NoError(t, err)

	assert.Equal(t, NormalizeStats{Total: 7, Kept: 3, Dropped: 4}, report.Stats)
	assertDecimal(t, "80", report.Summary.CurrentMonthTotal)
	assert.Equal(t, 2, report.Summary.CurrentMonthCount)
	assertDecimal(t, "80", report.Categories[core.Food].Amount)
	require.Len(t, report.Distribution, 2)
	assertDecimal(t, "80", report.Distribution[0].Percentage)
}

func TestCompute_UndatedRecordsCountForCategoriesOnly(t *testing.T) {
	records := append(marchRecords(),
		core.RawExpense{ID: "undated", Category: "Shopping", Amount: 100.0},
		core.RawExpense{ID: "bad-date", Category: "Shopping", Amount: 50.0, Date: "yesterday"},
	)

	report, err := Compute(records, core.NewDate(2024, 3, 20))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stats.Undated)
	assertDecimal(t, "150", report.Categories[core.Shopping].Amount)
	assertDecimal(t, "80", report.Summary.CurrentMonthTotal)
	assertDecimal(t, "50", report.Summary.AverageMonthlySpend)

	trendSum := decimal.Zero
	for _, p := range report.Trend {
		trendSum = trendSum.Add(p.Total)
	}
	assertDecimal(t, "100", trendSum)
	assert.Equal(t, []string{"Shopping", "Food", "Transport"}, report.Summary.TopCategories.Names())
}

func TestCompute_UnknownCategoryExcludedFromBuckets(t *testing.T) {
	records := []core.RawExpense{
		{Category: "Food", Amount: 10, Date: "2024-03-01"},
		{Category: "Rent", Amount: 1000, Date: "2024-03-01"},
	}
	report, err := Compute(records, core.NewDate(2024, 3, 20))
	require.NoError(t, err)

	require.Len(t, report.Distribution, 1)
	assertDecimal(t, "100", report.Distribution[0].Percentage)
	// unknown categories are still spend for the month-based figures
	assertDecimal(t, "1010", report.Summary.CurrentMonthTotal)
}

func TestCompute_ZeroReferenceDate(t *testing.T) {
	_, err := Compute(marchRecords(), core.Date{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestCompute_JanuaryRollsBackToDecember(t *testing.T) {
	records := []core.RawExpense{
		{Category: "Food", Amount: 40, Date: "2023-12-10"},
		{Category: "Food", Amount: 60, Date: "2024-01-05"},
		{Category: "Food", Amount: 500, Date: "2023-01-05"},
	}
	report, err := Compute(records, core.NewDate(2024, 1, 15))
	require.NoError(t, err)

	assertDecimal(t, "60", report.Summary.CurrentMonthTotal)
	assertDecimal(t, "40", report.Summary.LastMonthTotal)
	assertDecimal(t, "50", report.Summary.PercentChange)
	assert.Equal(t, "Aug 2023", report.Trend[0].Label)
	assert.Equal(t, "Jan 2024", report.Trend[5].Label)
	// January of the previous year must not land in the current bucket
	assertDecimal(t, "60", report.Trend[5].Total)
	// but it still counts toward the category totals
	assertDecimal(t, "600", report.Categories[core.Food].Amount)
	trendSum := decimal.Zero
	for _, p := range report.Trend {
		trendSum = trendSum.Add(p.Total)
	}
	assertDecimal(t, "100", trendSum)
}

func TestCompute_OnlyUnknownCategories(t *testing.T) {
	records := []core.RawExpense{
		{Category: "Rent", Amount: 900, Date: "2024-03-01"},
		{Category: "Pets", Amount: 40, Date: "2024-03-05"},
	}
	report, err := Compute(records, core.NewDate(2024, 3, 20))
	require.NoError(t, err)

	assert.Empty(t, report.Distribution)
	top := report.Summary.TopCategories
	assert.False(t, top.IsNoData())
	require.Len(t, top.Ranked, TopCategoryLimit)
	for _, ct := range top.Ranked {
		assertDecimal(t, "0", ct.Amount)
	}
	assert.Equal(t, []string{"Food", "Transport", "Entertainment"}, top.Names())
	assertDecimal(t, "940", report.Summary.CurrentMonthTotal)
}

func TestCompute_PercentChangeZeroWhenNoPreviousSpend(t *testing.T) {
	for _, records := range [][]core.RawExpense{
		nil,
		{{Category: "Food", Amount: 75, Date: "2024-03-02"}},
	} {
		report, err := Compute(records, core.NewDate(2024, 3, 20))
		require.NoError(t, err)
		assertDecimal(t, "0", report.Summary.PercentChange)
	}
}

func TestCompute_Properties(t *testing.T) {
	ref := core.NewDate(2024, 6, 30)
	for _, n := range []int{0, 1, 1000} {
		t.Run(fmt.Sprintf("%d records", n), func(t *testing.T) {
			records := generateRecords(n)
			report, err := Compute(records, ref)
			require.NoError(t, err)

			// conservation
			want := decimal.Zero
			for _, r := range records {
				if _, ok := core.ParseCategory(r.Category); ok {
					amount, _ := r.AmountValue()
					want = want.Add(amount)
				}
			}
			got := decimal.Zero
			for _, ct := range report.Categories {
				got = got.Add(ct.Amount)
			}
			assert.True(t, want.Equal(got), "conservation: want %s got %s", want, got)

			// distribution sums to 100 within rounding
			if got.IsPositive() {
				sum := decimal.Zero
				for _, s := range report.Distribution {
					sum = sum.Add(s.Percentage)
				}
				diff := sum.Sub(hundred).Abs()
				assert.True(t, diff.LessThanOrEqual(dec("0.35")), "distribution sums to %s", sum)
			} else {
				assert.Empty(t, report.Distribution)
			}

			// trend shape
			require.Len(t, report.Trend, TrendMonths)
			for i := 1; i < len(report.Trend); i++ {
				assert.Equal(t, 1, report.Trend[i].Month.Sub(report.Trend[i-1].Month))
			}
			assert.Equal(t, MonthOf(ref), report.Trend[TrendMonths-1].Month)

			// idempotence
			again, err := Compute(records, ref)
			require.NoError(t, err)
			assert.Equal(t, report, again)
		})
	}
}

func TestCompute_DistributionRoundsToOneDecimal(t *testing.T) {
	records := []core.RawExpense{
		{Category: "Food", Amount: 1, Date: "2024-03-01"},
		{Category: "Transport", Amount: 1, Date: "2024-03-01"},
		{Category: "Education", Amount: 1, Date: "2024-03-01"},
	}
	report, err := Compute(records, core.NewDate(2024, 3, 1))
	require.NoError(t, err)

	require.Len(t, report.Distribution, 3)
	for _, s := range report.Distribution {
		assertDecimal(t, "33.3", s.Percentage)
	}
}

func TestTopCategories_TiesKeepCanonicalOrder(t *testing.T) {
	expenses := []core.Expense{
		{Category: "Other", Amount: dec("10"), Date: core.NewDate(2024, 3, 1)},
		{Category: "Shopping", Amount: dec("10"), Date: core.NewDate(2024, 3, 1)},
		{Category: "Transport", Amount: dec("10"), Date: core.NewDate(2024, 3, 1)},
		{Category: "Utilities", Amount: dec("10"), Date: core.NewDate(2024, 3, 1)},
	}
	s := Summarize(expenses, core.NewDate(2024, 3, 1))
	assert.Equal(t, []string{"Transport", "Shopping", "Utilities"}, s.TopCategories.Names())
}

func TestEngine_WithClock(t *testing.T) {
	fixed := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	engine := New(WithClock(func() time.Time { return fixed }))

	report, err := engine.ComputeNow(marchRecords())
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 20), report.Reference)
	assertDecimal(t, "80", report.Summary.CurrentMonthTotal)
	assert.Len(t, report.Trend, TrendMonths)

	broken := New(WithClock(func() time.Time { return time.Time{} }))
	_, err = broken.ComputeNow(marchRecords())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestEngine_ComputeRange(t *testing.T) {
	engine := New()
	records := append(marchRecords(), core.RawExpense{Category: "Food", Amount: 5.0})

	report, err := engine.ComputeRange(records, core.NewDate(2024, 3, 20), Range{
		From: core.NewDate(2024, 3, 1),
		To:   core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)
	assertDecimal(t, "50", report.Categories[core.Food].Amount)
	assertDecimal(t, "0", report.Categories[core.Transport].Amount)

	_, err = engine.ComputeRange(records, core.NewDate(2024, 3, 20), Range{
		From: core.NewDate(2024, 4, 1),
		To:   core.NewDate(2024, 3, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	records := []core.RawExpense{
		{ID: "a", Category: " Food ", Amount: 12.5, Date: "2024-03-01T10:00:00Z"},
	}
	_, err := Compute(records, core.NewDate(2024, 3, 20))
	require.NoError(t, err)
	assert.Equal(t, " Food ", records[0].Category)
	assert.Equal(t, "2024-03-01T10:00:00Z", records[0].Date)
}

func TestParseReferenceDate(t *testing.T) {
	d, err := ParseReferenceDate("2024-03-20")
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 3, 20), d)

	for _, bad := range []string{"2024-02-30", "March 20", ""} {
		_, err := ParseReferenceDate(bad)
		assert.ErrorIs(t, err, core.ErrInvalidInput, bad)
	}
}

func TestMonthKey(t *testing.T) {
	k := MonthKey{Year: 2024, Month: time.January}
	assert.Equal(t, MonthKey{Year: 2023, Month: time.December}, k.Add(-1))
	assert.Equal(t, MonthKey{Year: 2023, Month: time.August}, k.Add(-5))
	assert.Equal(t, MonthKey{Year: 2025, Month: time.February}, k.Add(13))
	assert.Equal(t, 13, k.Add(13).Sub(k))
	assert.Equal(t, "Jan 2024", k.Label())
	assert.Equal(t, "2024-01", k.String())
}

func generateRecords(n int) []core.RawExpense {
	categories := []string{"Food", "Transport", "Entertainment", "Shopping", "Education", "Utilities", "Other", "Unknown"}
	records := make([]core.RawExpense, 0, n)
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		records = append(records, core.RawExpense{
			ID:       fmt.Sprintf("r%d", i),
			Category: categories[i%len(categories)],
			Amount:   float64(i%97) + 0.25,
			Date:     start.AddDate(0, 0, (i*7)%600).Format(core.DateLayout),
		})
	}
	return records
}
