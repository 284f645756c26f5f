package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryProgress is a category's spend measured against its limit,
// normalized to Period.
type CategoryProgress struct {
	CategoryID int64
	Name       string
	Period     Period
	Limit      decimal.Decimal
	Spent      decimal.Decimal
	Progress   decimal.Decimal // percent, capped at 100
	OverLimit  bool
}

// HistoryPoint is the spend of one past window.
type HistoryPoint struct {
	Start    time.Time
	End      time.Time
	Spent    decimal.Decimal
	Limit    decimal.Decimal
	Progress decimal.Decimal
}

// Overview summarizes a user's standing across all categories.
type Overview struct {
	User       User
	House      *House
	Categories []CategoryProgress
}
