// Package points scores expenditures against spending limits and keeps the
// user and house point rules in one place.
//
// Everything here is a pure function of its inputs. Persisting the
// resulting deltas and notifications is the caller's job.
package points

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spendpoints/internal/budget"
	"spendpoints/internal/core"
)

const (
	// WithinTargetBonus is awarded for an expenditure that keeps the
	// category within its limit.
	WithinTargetBonus = 5
	// NearingPercent is the share of the limit that triggers a warning.
	NearingPercent = 85
)

// Reasons recorded alongside a point change.
const (
	ReasonWithinTarget = "within_target"
	ReasonOverTarget   = "over_target"
	ReasonDailyLogin   = "daily_login"
)

const (
	TitlePointsWon  = "Points Won!"
	TitlePointsLost = "Points Lost!"
	TitleWatchOut   = "Watch out!"
	TitleHouseLost  = "House points lost!"
	TitleHouseWon   = "House points gained!"
	TitleDailyLogin = "Daily login!"
)

// Branch names the path an evaluation took.
type Branch int

const (
	// BranchNone means the expenditure was not scored.
	BranchNone Branch = iota
	// BranchAlreadyOver means the category was over its limit before the
	// expenditure; only the new amount is bucketed.
	BranchAlreadyOver
	// BranchWentOver means the expenditure pushed the category over.
	BranchWentOver
	// BranchWithin means the category is still within its limit.
	BranchWithin
)

func (b Branch) String() string {
	switch b {
	case BranchAlreadyOver:
		return "already_over"
	case BranchWentOver:
		return "went_over"
	case BranchWithin:
		return "within"
	default:
		return "none"
	}
}

// Outcome is the result of scoring one event for one user.
type Outcome struct {
	Branch  Branch
	Delta   int
	Reason  string
	Nearing bool
	// Progress is the category's spend against its limit after the
	// expenditure, in percent and capped at 100.
	Progress decimal.Decimal
	Notices  []core.Notice
}

// Scored reports whether the outcome changes any points.
func (o Outcome) Scored() bool {
	return o.Delta != 0
}

// Evaluate scores expenditure added to category c.
//
// c.Expenditures must hold the category's expenditures from before added
// was recorded. The category is measured over the current window of its
// own limit period. An expenditure dated outside that window is still
// scored, but its amount does not count toward the window's total.
func Evaluate(c core.Category, added core.Expenditure, now time.Time) Outcome {
	window, ok := budget.CurrentWindow(c.Limit.Period, now)
	if !ok {
		return Outcome{}
	}

	limit := budget.Convert(c.Limit, c.Limit.Period)
	prior := budget.TotalSpent(c.Limit.Period, c.Expenditures, now)
	total := prior
	if window.Contains(added.Date) {
		total = prior.Add(added.Amount)
	}

	out := Outcome{Progress: budget.Progress(total, limit)}

	// Both branches below need a positive limit to measure against.
	if !limit.IsPositive() {
		return out
	}

	if prior.GreaterThan(limit) {
		out.Branch = BranchAlreadyOver
		deduct(&out, limit.Add(added.Amount), limit)
		return out
	}

	if total.GreaterThan(limit) {
		out.Branch = BranchWentOver
		deduct(&out, total, limit)
		return out
	}

	out.Branch = BranchWithin
	if total.Mul(hundred).GreaterThanOrEqual(limit.Mul(decimal.NewFromInt(NearingPercent))) {
		out.Nearing = true
		out.Notices = append(out.Notices, core.Notice{
			Title:   TitleWatchOut,
			Message: fmt.Sprintf("Nearing spending limit for %s", c.Name),
		})
	}
	out.Delta = WithinTargetBonus
	out.Reason = ReasonWithinTarget
	out.Notices = append(out.Notices, core.Notice{
		Title:   TitlePointsWon,
		Message: fmt.Sprintf("%d points for staying within target for %s", WithinTargetBonus, c.Name),
	})
	return out
}

func deduct(out *Outcome, spent, limit decimal.Decimal) {
	n, ok := Deduction(spent, limit)
	if !ok {
		return
	}
	out.Delta = -n
	out.Reason = ReasonOverTarget
	out.Notices = append(out.Notices, core.Notice{
		Title:   TitlePointsLost,
		Message: deductionMessage(n),
	})
}

// ApplyDelta adds delta to a user's point count, never going below zero.
func ApplyDelta(count, delta int) int {
	return max(0, count+delta)
}

// ApplyHouseDelta adds delta to a house total. House totals are not
// floored and may go negative.
func ApplyHouseDelta(count, delta int) int {
	return count + delta
}

// HouseNotice is sent to a house member whose points changed the house
// total by delta. ok is false for a zero delta.
func HouseNotice(house core.House, delta int) (n core.Notice, ok bool) {
	switch {
	case delta < 0:
		return core.Notice{
			Title:   TitleHouseLost,
			Message: fmt.Sprintf("%d points lost for %s", -delta, house.Name),
		}, true
	case delta > 0:
		return core.Notice{
			Title:   TitleHouseWon,
			Message: fmt.Sprintf("%d points gained for %s", delta, house.Name),
		}, true
	default:
		return core.Notice{}, false
	}
}
