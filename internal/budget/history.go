package budget

import (
	"time"

	"spendpoints/internal/core"
)

// MaxHistoryWindows bounds History to keep report queries cheap.
const MaxHistoryWindows = 60

// History returns count consecutive windows of period, oldest first, ending
// with the window that contains now. Each point carries the category's
// limit converted to period.
func History(c core.Category, period core.Period, count int, now time.Time) []core.HistoryPoint {
	w, ok := CurrentWindow(period, now)
	if !ok || count <= 0 {
		return nil
	}
	if count > MaxHistoryWindows {
		count = MaxHistoryWindows
	}
	limit := Convert(c.Limit, period)

	points := make([]core.HistoryPoint, count)
	for i := count - 1; i >= 0; i-- {
		spent := TotalSpentInWindow(c.Expenditures, w.Start, w.End)
		points[i] = core.HistoryPoint{
			Start:    w.Start,
			End:      w.End,
			Spent:    spent,
			Limit:    limit,
			Progress: Progress(spent, limit),
		}
		w = w.Previous(period)
	}
	return points
}
