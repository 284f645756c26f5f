package points

import (
	"testing"
	"time"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		lastLogin time.Time
		wantDelta int
	}{
		{"first login ever", time.Time{}, DailyLoginBonus},
		{"yesterday", now.AddDate(0, 0, -1), DailyLoginBonus},
		{"earlier today", time.Date(2025, 3, 12, 0, 5, 0, 0, time.UTC), 0},
		{"same day last year", now.AddDate(-1, 0, 0), DailyLoginBonus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Login(tt.lastLogin, now)
			if got.Delta != tt.wantDelta {
				t.Fatalf("delta = %d, want %d", got.Delta, tt.wantDelta)
			}
			if tt.wantDelta > 0 {
				if len(got.Notices) != 1 || got.Notices[0].Message != "5 points earned for daily login" {
					t.Fatalf("unexpected notices: %+v", got.Notices)
				}
				if got.Reason != ReasonDailyLogin {
					t.Fatalf("reason = %q, want %q", got.Reason, ReasonDailyLogin)
				}
			} else if len(got.Notices) != 0 {
				t.Fatalf("expected no notices, got %+v", got.Notices)
			}
		})
	}
}

func TestLoginComparesDaysInNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 23:30 UTC on the 11th is already the 12th at UTC+2.
	last := time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC)
	current := time.Date(2025, 3, 12, 9, 0, 0, 0, loc)
	if got := Login(last, current); got.Delta != 0 {
		t.Fatalf("delta = %d, want 0", got.Delta)
	}
}
