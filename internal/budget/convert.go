// Package budget holds the pure budget arithmetic: converting a spending
// limit between periods, summing expenditures over calendar windows and
// measuring progress against a limit.
package budget

import (
	"github.com/shopspring/decimal"

	"spendpoints/internal/core"
)

// Calendar-average constants. They are intentionally coarse (a month is 30
// days, a year 52 weeks) and must stay in sync with the reporting views.
var (
	daysPerWeek   = decimal.NewFromInt(7)
	daysPerMonth  = decimal.NewFromInt(30)
	daysPerYear   = decimal.NewFromInt(365)
	weeksPerMonth = decimal.NewFromInt(4)
	weeksPerYear  = decimal.NewFromInt(52)
	monthsPerYear = decimal.NewFromInt(12)
)

type factor struct {
	multiply bool
	by       decimal.Decimal
}

func (f factor) apply(amount decimal.Decimal) decimal.Decimal {
	if f.multiply {
		return amount.Mul(f.by)
	}
	return amount.Div(f.by)
}

func times(d decimal.Decimal) factor { return factor{multiply: true, by: d} }
func per(d decimal.Decimal) factor   { return factor{by: d} }

// conversions maps target period -> source period -> factor.
var conversions = map[core.Period]map[core.Period]factor{
	core.Daily: {
		core.Weekly:  per(daysPerWeek),
		core.Monthly: per(daysPerMonth),
		core.Yearly:  per(daysPerYear),
	},
	core.Weekly: {
		core.Daily:   times(daysPerWeek),
		core.Monthly: per(weeksPerMonth),
		core.Yearly:  per(weeksPerYear),
	},
	core.Monthly: {
		core.Daily:  times(daysPerMonth),
		core.Weekly: times(weeksPerMonth),
		core.Yearly: per(monthsPerYear),
	},
}

// Convert restates limit as the equivalent amount for target.
//
// Targets other than daily, weekly and monthly, same-period input and
// unknown periods all return the amount unchanged.
func Convert(limit core.SpendingLimit, target core.Period) decimal.Decimal {
	bySource, ok := conversions[target]
	if !ok {
		return limit.Amount
	}
	f, ok := bySource[limit.Period]
	if !ok {
		return limit.Amount
	}
	return f.apply(limit.Amount)
}

// Normalize returns limit restated in target as a SpendingLimit.
func Normalize(limit core.SpendingLimit, target core.Period) core.SpendingLimit {
	if _, ok := conversions[target]; !ok {
		return limit
	}
	return core.SpendingLimit{Amount: Convert(limit, target), Period: target}
}
