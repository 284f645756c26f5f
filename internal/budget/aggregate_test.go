package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendpoints/internal/core"
)

func spend(amount string, y, m, d int) core.Expenditure {
	return core.Expenditure{Amount: dec(amount), Date: core.NewDate(y, m, d)}
}

// Wednesday 2025-03-12.
var wednesday = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

func TestCurrentWindow(t *testing.T) {
	tests := []struct {
		period    core.Period
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{core.Daily, wednesday, core.NewDate(2025, 3, 12).Time, core.NewDate(2025, 3, 13).Time},
		{core.Weekly, wednesday, core.NewDate(2025, 3, 10).Time, core.NewDate(2025, 3, 17).Time},
		{core.Weekly, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), core.NewDate(2025, 3, 10).Time, core.NewDate(2025, 3, 17).Time},
		{core.Weekly, time.Date(2025, 3, 16, 8, 0, 0, 0, time.UTC), core.NewDate(2025, 3, 10).Time, core.NewDate(2025, 3, 17).Time},
		{core.Monthly, wednesday, core.NewDate(2025, 3, 1).Time, core.NewDate(2025, 4, 1).Time},
		{core.Yearly, wednesday, core.NewDate(2025, 1, 1).Time, core.NewDate(2026, 1, 1).Time},
	}
	for _, tt := range tests {
		t.Run(string(tt.period)+"_"+tt.now.Format("2006-01-02"), func(t *testing.T) {
			w, ok := CurrentWindow(tt.period, tt.now)
			if !ok {
				t.Fatal("expected a window")
			}
			if !w.Start.Equal(tt.wantStart) || !w.End.Equal(tt.wantEnd) {
				t.Fatalf("window = [%s, %s), want [%s, %s)", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
		})
	}

	if _, ok := CurrentWindow(core.Period("hourly"), wednesday); ok {
		t.Fatal("unknown period should have no window")
	}
}

func TestTotalSpent(t *testing.T) {
	exps := []core.Expenditure{
		spend("1.10", 2025, 3, 12),  // today
		spend("2.20", 2025, 3, 10),  // monday this week
		spend("4.40", 2025, 3, 9),   // sunday last week
		spend("8.80", 2025, 3, 1),   // this month
		spend("16.00", 2025, 2, 28), // last month
		spend("32.00", 2024, 12, 31),
	}

	tests := []struct {
		period core.Period
		want   string
	}{
		{core.Daily, "1.10"},
		{core.Weekly, "3.30"},
		{core.Monthly, "16.50"},
		{core.Yearly, "32.50"},
		{core.Period("hourly"), "0"},
	}
	for _, tt := range tests {
		got := TotalSpent(tt.period, exps, wednesday)
		if !got.Equal(dec(tt.want)) {
			t.Errorf("TotalSpent(%s) = %s, want %s", tt.period, got, tt.want)
		}
	}
}

func TestTotalSpentEmpty(t *testing.T) {
	for _, p := range core.Periods {
		if got := TotalSpent(p, nil, wednesday); !got.IsZero() {
			t.Fatalf("TotalSpent(%s, nil) = %s, want 0", p, got)
		}
	}
	if got := Sum(nil); !got.IsZero() {
		t.Fatalf("Sum(nil) = %s, want 0", got)
	}
}

func TestSumIsOrderIndependent(t *testing.T) {
	exps := []core.Expenditure{
		spend("0.10", 2025, 1, 1),
		spend("0.20", 2025, 1, 2),
		spend("1234.56", 2025, 1, 3),
		spend("0.07", 2025, 1, 4),
	}
	want := dec("1234.93")
	for i := 0; i < len(exps); i++ {
		rotated := append(append([]core.Expenditure{}, exps[i:]...), exps[:i]...)
		if got := Sum(rotated); !got.Equal(want) {
			t.Fatalf("rotation %d: Sum = %s, want %s", i, got, want)
		}
	}
}

func TestTotalSpentInWindow(t *testing.T) {
	exps := []core.Expenditure{
		spend("1", 2025, 1, 1),
		spend("2", 2025, 1, 15),
		spend("4", 2025, 2, 1),
	}
	start := core.NewDate(2025, 1, 1).Time
	end := core.NewDate(2025, 2, 1).Time

	if got := TotalSpentInWindow(exps, start, end); !got.Equal(dec("3")) {
		t.Fatalf("bounded window = %s, want 3", got)
	}
	if got := TotalSpentInWindow(exps, start, time.Time{}); !got.Equal(dec("7")) {
		t.Fatalf("open window = %s, want 7", got)
	}
	if got := TotalSpentInWindow(exps, core.NewDate(2026, 1, 1).Time, time.Time{}); !got.IsZero() {
		t.Fatalf("empty window = %s, want 0", got)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		spend, budget, want string
	}{
		{"10", "20", "50"},
		{"17", "20", "85"},
		{"1", "3", "33.33"},
		{"2", "3", "66.67"},
		{"41", "20", "100"},
		{"5", "0", "0"},
		{"0", "20", "0"},
	}
	for _, tt := range tests {
		got := Progress(dec(tt.spend), dec(tt.budget))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("Progress(%s, %s) = %s, want %s", tt.spend, tt.budget, got, tt.want)
		}
	}
}

func TestIsOverLimit(t *testing.T) {
	c := core.Category{
		Limit:        core.SpendingLimit{Amount: dec("20"), Period: core.Daily},
		Expenditures: []core.Expenditure{spend("22", 2025, 3, 12)},
	}
	if !IsOverLimit(c, wednesday) {
		t.Fatal("expected category over its daily limit")
	}

	c.Expenditures = []core.Expenditure{spend("20", 2025, 3, 12)}
	if IsOverLimit(c, wednesday) {
		t.Fatal("spend equal to the limit is not over it")
	}

	c.Limit.Amount = decimal.Zero
	c.Expenditures = []core.Expenditure{spend("50", 2025, 3, 12)}
	if IsOverLimit(c, wednesday) {
		t.Fatal("a zero limit is never exceeded")
	}
}

func TestCategoryProgressConvertsLimit(t *testing.T) {
	c := core.Category{
		ID:           7,
		Name:         "Food",
		Limit:        core.SpendingLimit{Amount: dec("70"), Period: core.Weekly},
		Expenditures: []core.Expenditure{spend("15", 2025, 3, 12)},
	}
	p := CategoryProgress(c, core.Daily, wednesday)
	if !p.Limit.Equal(dec("10")) || !p.Spent.Equal(dec("15")) {
		t.Fatalf("unexpected limit/spent: %s/%s", p.Limit, p.Spent)
	}
	if !p.Progress.Equal(dec("100")) || !p.OverLimit {
		t.Fatalf("expected capped progress and over limit, got %s over=%v", p.Progress, p.OverLimit)
	}
	if p.CategoryID != 7 || p.Name != "Food" || p.Period != core.Daily {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
}
