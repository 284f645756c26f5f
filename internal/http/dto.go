package http

import (
	"time"

	"spendpoints/internal/core"
	"spendpoints/internal/points"
	"spendpoints/internal/services"
)

// Requests. Amounts travel as decimal strings.

type createHouseRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	HouseID  *int64 `json:"house_id" validate:"omitempty,gt=0"`
}

type limitRequest struct {
	Amount string `json:"amount" validate:"required"`
	Period string `json:"period" validate:"required,oneof=daily weekly monthly yearly"`
}

type createCategoryRequest struct {
	Name  string       `json:"name" validate:"required,max=100"`
	Limit limitRequest `json:"limit"`
}

type createExpenditureRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=200"`
}

func (l limitRequest) toLimit() (core.SpendingLimit, error) {
	amount, err := core.ParseAmount(l.Amount)
	if err != nil {
		return core.SpendingLimit{}, err
	}
	period, err := core.ParsePeriod(l.Period)
	if err != nil {
		return core.SpendingLimit{}, err
	}
	return core.SpendingLimit{Amount: amount, Period: period}, nil
}

// Responses.

type houseResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	MemberCount int    `json:"member_count"`
}

type userResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	HouseID   *int64     `json:"house_id,omitempty"`
	Points    int        `json:"points"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type limitResponse struct {
	Amount string `json:"amount"`
	Period string `json:"period"`
}

type categoryResponse struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Limit limitResponse `json:"limit"`
}

type expenditureResponse struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"category_id"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
}

type noticeResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type outcomeResponse struct {
	Branch   string           `json:"branch"`
	Delta    int              `json:"delta"`
	Reason   string           `json:"reason,omitempty"`
	Nearing  bool             `json:"nearing"`
	Progress string           `json:"progress"`
	Notices  []noticeResponse `json:"notices"`
}

type createExpenditureResponse struct {
	Expenditure expenditureResponse `json:"expenditure"`
	Outcome     outcomeResponse     `json:"outcome"`
	UserPoints  *int                `json:"user_points,omitempty"`
	HousePoints *int                `json:"house_points,omitempty"`
}

type loginResponse struct {
	Awarded int    `json:"awarded"`
	Points  int    `json:"points"`
	Reason  string `json:"reason,omitempty"`
}

type progressResponse struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Period     string `json:"period"`
	Limit      string `json:"limit"`
	Spent      string `json:"spent"`
	Progress   string `json:"progress"`
	OverLimit  bool   `json:"over_limit"`
}

type historyPointResponse struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Spent    string `json:"spent"`
	Limit    string `json:"limit"`
	Progress string `json:"progress"`
}

type overviewResponse struct {
	User       userResponse       `json:"user"`
	House      *houseResponse     `json:"house,omitempty"`
	Categories []progressResponse `json:"categories"`
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

type convertResponse struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
	Result string `json:"result"`
}

func toHouse(h core.House) houseResponse {
	return houseResponse{ID: h.ID, Name: h.Name, Points: h.Points, MemberCount: h.MemberCount}
}

func toUser(u core.User) userResponse {
	out := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		HouseID:   u.HouseID,
		Points:    u.Points,
		CreatedAt: u.CreatedAt,
	}
	if !u.LastLogin.IsZero() {
		last := u.LastLogin
		out.LastLogin = &last
	}
	return out
}

func toCategory(c core.Category) categoryResponse {
	return categoryResponse{
		ID:   c.ID,
		Name: c.Name,
		Limit: limitResponse{
			Amount: core.FormatAmount(c.Limit.Amount),
			Period: c.Limit.Period.String(),
		},
	}
}

func toExpenditure(e core.Expenditure) expenditureResponse {
	return expenditureResponse{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Date:        e.Date.String(),
		Description: e.Description,
		Amount:      core.FormatAmount(e.Amount),
	}
}

func toOutcome(o points.Outcome) outcomeResponse {
	notices := make([]noticeResponse, 0, len(o.Notices))
	for _, n := range o.Notices {
		notices = append(notices, noticeResponse{Title: n.Title, Message: n.Message})
	}
	return outcomeResponse{
		Branch:   o.Branch.String(),
		Delta:    o.Delta,
		Reason:   o.Reason,
		Nearing:  o.Nearing,
		Progress: core.FormatAmount(o.Progress),
		Notices:  notices,
	}
}

func toCreateExpenditure(res services.ExpenditureResult) createExpenditureResponse {
	out := createExpenditureResponse{
		Expenditure: toExpenditure(res.Expenditure),
		Outcome:     toOutcome(res.Outcome),
	}
	if res.Outcome.Scored() {
		userPoints := res.Balance.UserPoints
		out.UserPoints = &userPoints
		out.HousePoints = res.Balance.HousePoints
	}
	return out
}

func toProgress(p core.CategoryProgress) progressResponse {
	return progressResponse{
		CategoryID: p.CategoryID,
		Name:       p.Name,
		Period:     p.Period.String(),
		Limit:      core.FormatAmount(p.Limit),
		Spent:      core.FormatAmount(p.Spent),
		Progress:   core.FormatAmount(p.Progress),
		OverLimit:  p.OverLimit,
	}
}

func toHistoryPoint(p core.HistoryPoint) historyPointResponse {
	return historyPointResponse{
		Start:    core.DateOf(p.Start).String(),
		End:      core.DateOf(p.End).String(),
		Spent:    core.FormatAmount(p.Spent),
		Limit:    core.FormatAmount(p.Limit),
		Progress: core.FormatAmount(p.Progress),
	}
}

func toNotification(n core.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Seen:      n.Seen,
		CreatedAt: n.CreatedAt,
	}
}
