package points

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// bucket deducts points when the over-limit percentage is above the
// previous bucket's bound and at most upTo.
type bucket struct {
	upTo   decimal.Decimal
	points int
}

var buckets = []bucket{
	{upTo: decimal.NewFromInt(10), points: 3},
	{upTo: decimal.NewFromInt(30), points: 5},
	{upTo: decimal.NewFromInt(50), points: 10},
	{upTo: decimal.NewFromInt(70), points: 15},
	{upTo: decimal.NewFromInt(100), points: 20},
}

// MaxDeduction applies to anything more than 100% over the limit.
const MaxDeduction = 25

var hundred = decimal.NewFromInt(100)

// OverPercent is how far spent exceeds limit, as a percentage of limit.
// It is negative when spent is under the limit and zero for a zero limit.
func OverPercent(spent, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		return decimal.Zero
	}
	return spent.Sub(limit).Mul(hundred).Div(limit)
}

// DeductionForPercent returns the points lost for being pct percent over a
// limit. ok is false when pct is not positive.
func DeductionForPercent(pct decimal.Decimal) (points int, ok bool) {
	if !pct.IsPositive() {
		return 0, false
	}
	for _, b := range buckets {
		if pct.LessThanOrEqual(b.upTo) {
			return b.points, true
		}
	}
	return MaxDeduction, true
}

// Deduction returns the points lost for spending spent against limit. A
// zero limit never deducts.
func Deduction(spent, limit decimal.Decimal) (points int, ok bool) {
	if !limit.IsPositive() {
		return 0, false
	}
	return DeductionForPercent(OverPercent(spent, limit))
}

func deductionMessage(points int) string {
	return fmt.Sprintf("%d points lost for going over target", points)
}
