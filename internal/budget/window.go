package budget

import (
	"time"

	"spendpoints/internal/core"
)

// Window is a half-open calendar span [Start, End) expressed in UTC dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date d falls inside the window.
// A zero End leaves the window open-ended.
func (w Window) Contains(d core.Date) bool {
	if d.Before(w.Start) {
		return false
	}
	return w.End.IsZero() || d.Before(w.End)
}

// CurrentWindow returns the window of period p that contains now. Weeks
// start on Monday. ok is false for an unknown period.
func CurrentWindow(p core.Period, now time.Time) (w Window, ok bool) {
	today := core.DateOf(now).Time
	switch p {
	case core.Daily:
		return Window{Start: today, End: today.AddDate(0, 0, 1)}, true
	case core.Weekly:
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}, true
	case core.Monthly:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}, true
	case core.Yearly:
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(1, 0, 0)}, true
	default:
		return Window{}, false
	}
}

// Previous returns the window of period p immediately before w.
func (w Window) Previous(p core.Period) Window {
	switch p {
	case core.Daily:
		return Window{Start: w.Start.AddDate(0, 0, -1), End: w.Start}
	case core.Weekly:
		return Window{Start: w.Start.AddDate(0, 0, -7), End: w.Start}
	case core.Monthly:
		return Window{Start: w.Start.AddDate(0, -1, 0), End: w.Start}
	case core.Yearly:
		return Window{Start: w.Start.AddDate(-1, 0, 0), End: w.Start}
	default:
		return w
	}
}
