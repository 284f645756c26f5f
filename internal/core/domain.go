package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

type (
	// Period is the time span a spending limit is stated in.
	Period string

	Date struct {
		time.Time
	}

	SpendingLimit struct {
		Amount decimal.Decimal
		Period Period
	}

	Expenditure struct {
		ID          int64
		CategoryID  int64
		Date        Date
		Description string
		Amount      decimal.Decimal
	}

	Category struct {
		ID           int64
		UserID       int64
		Name         string
		Limit        SpendingLimit
		Expenditures []Expenditure
	}

	User struct {
		ID        int64
		Username  string
		HouseID   *int64
		Points    int
		LastLogin time.Time // zero when the user never logged in
		CreatedAt time.Time
	}

	House struct {
		ID          int64
		Name        string
		Points      int
		MemberCount int
	}

	// Notice is a notification not yet addressed to a recipient.
	Notice struct {
		Title   string
		Message string
	}

	Notification struct {
		ID          int64
		RecipientID int64
		Title       string
		Message     string
		Seen        bool
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyUsername   = errors.New("empty username")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
	ErrNameLong        = errors.New("name too long (max 100 characters)")
)

// Periods lists every period in ascending span.
var Periods = []Period{Daily, Weekly, Monthly, Yearly}

// ParsePeriod maps user input to a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q (want daily, weekly, monthly or yearly)", ErrInvalidPeriod, s)
	}
	return p, nil
}

func (p Period) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (p Period) String() string {
	return string(p)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's calendar fields.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// SameDay reports whether d and t fall on the same calendar day.
func (d Date) SameDay(t time.Time) bool {
	y1, m1, d1 := d.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (l SpendingLimit) Validate() error {
	if !l.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !l.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (e Expenditure) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(e.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameLong
	}
	if err := c.Limit.Validate(); err != nil {
		return fmt.Errorf("spending limit: %w", err)
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if len(u.Username) > 100 {
		return ErrNameLong
	}
	return nil
}

func (h House) Validate() error {
	name := strings.TrimSpace(h.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameLong
	}
	return nil
}

// HasHouse reports whether the user belongs to a house.
func (u User) HasHouse() bool {
	return u.HouseID != nil && *u.HouseID > 0
}

// Address turns a notice into a notification for the given user.
func (n Notice) Address(recipientID int64, at time.Time) Notification {
	return Notification{
		RecipientID: recipientID,
		Title:       n.Title,
		Message:     n.Message,
		CreatedAt:   at,
	}
}
