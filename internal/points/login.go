package points

import (
	"fmt"
	"time"

	"spendpoints/internal/core"
)

// DailyLoginBonus is awarded on the first login of a calendar day.
const DailyLoginBonus = 5

// Login scores a login at now for a user whose previous login was
// lastLogin. A zero lastLogin counts as a different day. Days are compared
// in now's location.
func Login(lastLogin, now time.Time) Outcome {
	if !lastLogin.IsZero() && core.DateOf(lastLogin.In(now.Location())).SameDay(now) {
		return Outcome{}
	}
	return Outcome{
		Delta:  DailyLoginBonus,
		Reason: ReasonDailyLogin,
		Notices: []core.Notice{{
			Title:   TitleDailyLogin,
			Message: fmt.Sprintf("%d points earned for daily login", DailyLoginBonus),
		}},
	}
}
