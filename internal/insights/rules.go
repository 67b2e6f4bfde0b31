package insights

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
)

var (
	changeThreshold = decimal.NewFromInt(10)
	dominantShare   = decimal.NewFromInt(50)
)

// Rules derives insights from the report alone: month over month change,
// the largest category share, and this month against the monthly average.
type Rules struct{}

var _ Generator = Rules{}

func (Rules) Name() string { return "rules" }

func (Rules) Generate(_ context.Context, in Input) ([]core.Insight, error) {
	if len(in.Expenses) == 0 {
		return nil, ErrNoExpenses
	}
	r := in.Report
	return []core.Insight{
		monthChange(r.Summary),
		topShare(r.Distribution),
		versusAverage(r.Summary),
	}, nil
}

func monthChange(s analytics.Summary) core.Insight {
	pct := core.RoundTenth(s.PercentChange)
	switch {
	case s.LastMonthTotal.IsZero() && s.CurrentMonthTotal.IsPositive():
		return core.Insight{
			Type: core.InsightInfo,
			Text: fmt.Sprintf("You spent %s this month and nothing last month.", s.CurrentMonthTotal.StringFixed(2)),
		}
	case pct.GreaterThan(changeThreshold):
		return core.Insight{
			Type: core.InsightWarning,
			Text: fmt.Sprintf("Spending is up %s%% compared to last month.", pct.String()),
		}
	case pct.LessThan(changeThreshold.Neg()):
		return core.Insight{
			Type: core.InsightSuccess,
			Text: fmt.Sprintf("Spending is down %s%% compared to last month.", pct.Abs().String()),
		}
	default:
		return core.Insight{
			Type: core.InsightInfo,
			Text: "Spending this month is in line with last month.",
		}
	}
}

func topShare(distribution []analytics.DistributionSlice) core.Insight {
	if len(distribution) == 0 {
		return core.Insight{Type: core.InsightInfo, Text: "No category spending recorded yet."}
	}
	top := distribution[0]
	for _, d := range distribution[1:] {
		if d.Value.GreaterThan(top.Value) {
			top = d
		}
	}
	if top.Percentage.GreaterThanOrEqual(dominantShare) {
		return core.Insight{
			Type: core.InsightWarning,
			Text: fmt.Sprintf("%s makes up %s%% of your spending.", top.Name, top.Percentage.String()),
		}
	}
	return core.Insight{
		Type: core.InsightInfo,
		Text: fmt.Sprintf("%s is your largest category at %s%% of spending.", top.Name, top.Percentage.String()),
	}
}

func versusAverage(s analytics.Summary) core.Insight {
	avg := s.AverageMonthlySpend
	if !avg.IsPositive() {
		return core.Insight{Type: core.InsightInfo, Text: "Add dated expenses to see your monthly average."}
	}
	if s.CurrentMonthTotal.GreaterThan(avg) {
		return core.Insight{
			Type: core.InsightWarning,
			Text: fmt.Sprintf("This month's spending of %s is above your monthly average of %s.",
				s.CurrentMonthTotal.StringFixed(2), avg.StringFixed(2)),
		}
	}
	return core.Insight{
		Type: core.InsightSuccess,
		Text: fmt.Sprintf("This month's spending of %s is within your monthly average of %s.",
			s.CurrentMonthTotal.StringFixed(2), avg.StringFixed(2)),
	}
}

// Fallback tries Primary and answers from Secondary when it fails. An empty
// input is reported as ErrNoExpenses without calling either.
type Fallback struct {
	Primary   Generator
	Secondary Generator
	Logger    *log.Logger
}

func (f Fallback) Name() string {
	if f.Primary == nil {
		return f.Secondary.Name()
	}
	return f.Primary.Name()
}

func (f Fallback) Generate(ctx context.Context, in Input) ([]core.Insight, error) {
	if len(in.Expenses) == 0 {
		return nil, ErrNoExpenses
	}
	if f.Primary != nil {
		out, err := f.Primary.Generate(ctx, in)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if f.Logger != nil {
			f.Logger.WarnContext(ctx, "Primary insight generator failed, using fallback",
				log.FieldGenerator, f.Primary.Name(),
				log.FieldError, err)
		}
	}
	return f.Secondary.Generate(ctx, in)
}
