package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"spendpoints/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Sum adds up the amounts of every expenditure.
func Sum(expenditures []core.Expenditure) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenditures {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalSpent sums the expenditures dated inside the current window of
// period. An unknown period matches nothing.
func TotalSpent(period core.Period, expenditures []core.Expenditure, now time.Time) decimal.Decimal {
	w, ok := CurrentWindow(period, now)
	if !ok {
		return decimal.Zero
	}
	return sumIn(w, expenditures)
}

// TotalSpentInWindow sums the expenditures dated on or after start and,
// when end is non-zero, strictly before end.
func TotalSpentInWindow(expenditures []core.Expenditure, start, end time.Time) decimal.Decimal {
	return sumIn(Window{Start: start, End: end}, expenditures)
}

func sumIn(w Window, expenditures []core.Expenditure) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenditures {
		if w.Contains(e.Date) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Progress is spend as a percentage of budget, rounded to two decimals and
// capped at 100. A zero budget has zero progress.
func Progress(spend, budget decimal.Decimal) decimal.Decimal {
	if budget.IsZero() {
		return decimal.Zero
	}
	pct := spend.Mul(hundred).Div(budget).Round(2)
	return decimal.Min(pct, hundred)
}

// IsOverLimit reports whether the category's spend in the current window of
// its limit period exceeds the limit. A zero limit is never exceeded.
func IsOverLimit(c core.Category, now time.Time) bool {
	if !c.Limit.Amount.IsPositive() {
		return false
	}
	return TotalSpent(c.Limit.Period, c.Expenditures, now).GreaterThan(c.Limit.Amount)
}

// CategoryProgress measures the category in period, converting its limit
// when the limit is stated in another period.
func CategoryProgress(c core.Category, period core.Period, now time.Time) core.CategoryProgress {
	limit := Convert(c.Limit, period)
	spent := TotalSpent(period, c.Expenditures, now)
	return core.CategoryProgress{
		CategoryID: c.ID,
		Name:       c.Name,
		Period:     period,
		Limit:      limit,
		Spent:      spent,
		Progress:   Progress(spent, limit),
		OverLimit:  limit.IsPositive() && spent.GreaterThan(limit),
	}
}
