package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for expense dates on the wire and in storage.
const DateLayout = "2006-01-02"

// Expense represents a single spending entry owned by a user.
type Expense struct {
	ID          int64           `json:"id"`
	UserEmail   string          `json:"user_email"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Granularity is the time bucket used to group expenses.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// PeriodTotal is one row of a grouped report: a period label, a category and their sum.
type PeriodTotal struct {
	Period   string
	Category string
	Total    decimal.Decimal
}

// SeriesPoint is a single (period, total) sample of a time series.
type SeriesPoint struct {
	Period string
	Total  decimal.Decimal
}

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}
