// Package expense records expenses and builds the per-period reports shown to users.
package expense

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"budgetbook/internal/models"
)

// ErrValidation is returned when a submitted expense is malformed.
var ErrValidation = errors.New("validation error")

const (
	maxCategoryLen    = 100
	maxDescriptionLen = 300
)

// maxAmount bounds the absolute value of a single expense. Amounts are stored as
// int64 cents, and the bound keeps sums of tens of thousands of them in range.
var maxAmount = decimal.New(1, 12)

var expensesCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "budgetbook",
	Subsystem: "expense",
	Name:      "created_total",
	Help:      "Expenses recorded.",
})

type store interface {
	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, email string) ([]models.Expense, error)
	GroupedTotals(ctx context.Context, email string, g models.Granularity) ([]models.PeriodTotal, error)
	GrandTotal(ctx context.Context, email string) (decimal.Decimal, error)
	Series(ctx context.Context, email string, g models.Granularity, since time.Time) ([]models.SeriesPoint, error)
	CategoryBreakdown(ctx context.Context, email string, since time.Time) ([]models.CategoryTotal, error)
}

// Service adds expenses and aggregates them.
type Service struct {
	store  store
	logger *slog.Logger
	clock  func() time.Time
}

// NewService creates an expense service.
func NewService(store store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

// ParseGranularity converts a query value to a Granularity.
func ParseGranularity(s string) (models.Granularity, error) {
	switch g := models.Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case models.Day, models.Week, models.Month, models.Year:
		return g, nil
	}
	return "", errors.Wrapf(ErrValidation, "unknown time period %q", s)
}

// Add validates and records an expense for owner.
func (s *Service) Add(ctx context.Context, owner, date, category, description, amount string) (*models.Expense, error) {
	e, err := parse(owner, date, category, description, amount)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}

	expensesCreated.Inc()
	s.logger.DebugContext(ctx, "expense added",
		slog.Int64("id", e.ID),
		slog.String("owner", owner),
		slog.String("amount", e.Amount.StringFixed(2)))
	return e, nil
}

func parse(owner, date, category, description, amount string) (*models.Expense, error) {
	if owner == "" {
		return nil, errors.Wrap(ErrValidation, "owner is required")
	}

	d, err := time.Parse(models.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, errors.Wrapf(ErrValidation, "invalid date %q", date)
	}

	a, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, errors.Wrapf(ErrValidation, "invalid amount %q", amount)
	}
	a = a.Round(2)
	if a.Abs().GreaterThanOrEqual(maxAmount) {
		return nil, errors.Wrapf(ErrValidation, "amount %q is out of range", amount)
	}

	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.Wrap(ErrValidation, "category is required")
	}
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return nil, errors.Wrap(ErrValidation, fmt.Sprintf("category is longer than %d characters", maxCategoryLen))
	}

	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, errors.Wrap(ErrValidation, fmt.Sprintf("description is longer than %d characters", maxDescriptionLen))
	}

	return &models.Expense{
		UserEmail:   owner,
		Date:        d,
		Category:    category,
		Description: description,
		Amount:      a,
	}, nil
}

// Report is the tabular view of a user's expenses.
type Report struct {
	Granularity models.Granularity
	// Expenses is set for the day granularity, newest first.
	Expenses []models.Expense
	// Groups is set for coarser granularities, newest period first.
	Groups []models.PeriodTotal
	// Total sums every expense of the user regardless of granularity.
	Total decimal.Decimal
}

// ListAndTotal builds the report for owner. Day lists raw expenses, month and year
// group them by period and category.
func (s *Service) ListAndTotal(ctx context.Context, owner string, g models.Granularity) (*Report, error) {
	r := &Report{Granularity: g}

	var err error
	switch g {
	case models.Day:
		r.Expenses, err = s.store.ListExpenses(ctx, owner)
	case models.Month, models.Year:
		r.Groups, err = s.store.GroupedTotals(ctx, owner, g)
	default:
		return nil, errors.Wrapf(ErrValidation, "time period %q is not supported for reports", g)
	}
	if err != nil {
		return nil, err
	}

	if r.Total, err = s.store.GrandTotal(ctx, owner); err != nil {
		return nil, err
	}
	return r, nil
}

// Analysis is the chart data for one granularity.
type Analysis struct {
	Granularity models.Granularity
	// Since is the first day covered; zero means all time.
	Since     time.Time
	Series    []models.SeriesPoint
	Breakdown []models.CategoryTotal
}

// SeriesAndBreakdown returns totals per period in ascending order and per category in
// descending order of amount, both over the lookback window of g.
func (s *Service) SeriesAndBreakdown(ctx context.Context, owner string, g models.Granularity) (*Analysis, error) {
	since, err := Window(g, s.clock())
	if err != nil {
		return nil, err
	}

	a := &Analysis{Granularity: g, Since: since}
	if a.Series, err = s.store.Series(ctx, owner, g, since); err != nil {
		return nil, err
	}
	if a.Breakdown, err = s.store.CategoryBreakdown(ctx, owner, since); err != nil {
		return nil, err
	}
	return a, nil
}

// Window returns the first day of the lookback window of g at t:
// the last 7 days, the last 8 weeks starting on Monday, the last 12 months,
// or all time (zero) for years.
func Window(g models.Granularity, t time.Time) (time.Time, error) {
	t = t.UTC()
	n := (&now.Config{WeekStartDay: time.Monday, TimeLocation: time.UTC}).With(t)

	var since time.Time
	switch g {
	case models.Day:
		since = n.BeginningOfDay().AddDate(0, 0, -6)
	case models.Week:
		since = n.BeginningOfWeek().AddDate(0, 0, -7*7)
	case models.Month:
		since = n.BeginningOfMonth().AddDate(0, -11, 0)
	case models.Year:
		return time.Time{}, nil
	default:
		return time.Time{}, errors.Wrapf(ErrValidation, "unknown time period %q", g)
	}
	// Expense dates are calendar dates without a zone.
	return time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC), nil
}
