package expense

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"budgetbook/internal/models"
	"budgetbook/internal/storage"
)

const owner = "alice@example.com"

type ServiceTestSuite struct {
	suite.Suite
	db  *storage.DB
	svc *Service
	ctx context.Context
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	_, err = db.CreateUser(suite.ctx, "Alice", owner, "hash")
	require.NoError(suite.T(), err)

	suite.svc = NewService(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	suite.svc.clock = func() time.Time { return time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC) }
}

func (suite *ServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServiceTestSuite) mustAdd(date, category, amount string) {
	_, err := suite.svc.Add(suite.ctx, owner, date, category, "", amount)
	require.NoError(suite.T(), err, "add %s %s %s", date, category, amount)
}

func (suite *ServiceTestSuite) TestAdd() {
	e, err := suite.svc.Add(suite.ctx, owner, "2024-03-01", " Food ", " Lunch ", "12.50")
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), e.ID)
	assert.Equal(suite.T(), "Food", e.Category)
	assert.Equal(suite.T(), "Lunch", e.Description)
	assert.Equal(suite.T(), "12.50", e.Amount.StringFixed(2))
}

func (suite *ServiceTestSuite) TestAddValidation() {
	tests := []struct {
		name     string
		date     string
		category string
		amount   string
	}{
		{"bad amount", "2024-03-01", "Food", "twelve"},
		{"empty amount", "2024-03-01", "Food", ""},
		{"bad date", "03/01/2024", "Food", "1"},
		{"impossible date", "2024-02-30", "Food", "1"},
		{"empty date", "", "Food", "1"},
		{"empty category", "2024-03-01", "  ", "1"},
		{"amount overflows cents", "2024-03-01", "Food", "100000000000000000000"},
		{"amount at ceiling", "2024-03-01", "Food", "1000000000000"},
		{"negative amount at ceiling", "2024-03-01", "Food", "-1000000000000"},
		{"amount rounds up to ceiling", "2024-03-01", "Food", "999999999999.999"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.svc.Add(suite.ctx, owner, tt.date, tt.category, "", tt.amount)
			assert.ErrorIs(suite.T(), err, ErrValidation)
		})
	}

	expenses, err := suite.db.ListExpenses(suite.ctx, owner)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses, "rejected expenses must not be written")
}

func (suite *ServiceTestSuite) TestAddNegativeAmount() {
	e, err := suite.svc.Add(suite.ctx, owner, "2024-03-01", "Refund", "", "-4.99")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "-4.99", e.Amount.StringFixed(2))
}

func (suite *ServiceTestSuite) TestAddLargestAmount() {
	e, err := suite.svc.Add(suite.ctx, owner, "2024-03-01", "House", "", "999999999999.99")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "999999999999.99", e.Amount.StringFixed(2))

	r, err := suite.svc.ListAndTotal(suite.ctx, owner, models.Day)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), r.Expenses, 1)
	assert.Equal(suite.T(), "999999999999.99", r.Expenses[0].Amount.StringFixed(2))
	assert.Equal(suite.T(), "999999999999.99", r.Total.StringFixed(2))
}

func (suite *ServiceTestSuite) TestListAndTotalDay() {
	suite.mustAdd("2024-03-01", "Food", "1.10")
	suite.mustAdd("2024-03-15", "Rent", "2.20")
	suite.mustAdd("2023-12-31", "Food", "3.30")

	r, err := suite.svc.ListAndTotal(suite.ctx, owner, models.Day)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), r.Expenses, 3)
	assert.Empty(suite.T(), r.Groups)

	for i := 1; i < len(r.Expenses); i++ {
		assert.False(suite.T(), r.Expenses[i].Date.After(r.Expenses[i-1].Date), "expenses must be newest first")
	}
	assert.Equal(suite.T(), "6.60", r.Total.StringFixed(2))
}

func (suite *ServiceTestSuite) TestGrandTotalIgnoresGranularity() {
	suite.mustAdd("2022-01-01", "Food", "10.01")
	suite.mustAdd("2024-03-01", "Food", "0.99")

	var totals []string
	for _, g := range []models.Granularity{models.Day, models.Month, models.Year} {
		r, err := suite.svc.ListAndTotal(suite.ctx, owner, g)
		require.NoError(suite.T(), err)
		totals = append(totals, r.Total.StringFixed(2))
	}
	assert.Equal(suite.T(), []string{"11.00", "11.00", "11.00"}, totals)
}

func (suite *ServiceTestSuite) TestListAndTotalMonthGroupsSameCategory() {
	suite.mustAdd("2024-01-05", "Food", "4.00")
	suite.mustAdd("2024-01-20", "Food", "6.00")

	r, err := suite.svc.ListAndTotal(suite.ctx, owner, models.Month)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), r.Groups, 1)
	assert.Equal(suite.T(), "2024-01", r.Groups[0].Period)
	assert.Equal(suite.T(), "Food", r.Groups[0].Category)
	assert.Equal(suite.T(), "10.00", r.Groups[0].Total.StringFixed(2))
}

func (suite *ServiceTestSuite) TestListAndTotalRejectsWeek() {
	_, err := suite.svc.ListAndTotal(suite.ctx, owner, models.Week)
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func (suite *ServiceTestSuite) TestMonthViewExample() {
	suite.mustAdd("2024-03-01", "Food", "12.50")
	suite.mustAdd("2024-03-15", "Food", "7.50")

	r, err := suite.svc.ListAndTotal(suite.ctx, owner, models.Month)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), r.Groups, 1)
	assert.Equal(suite.T(), "2024-03", r.Groups[0].Period)
	assert.Equal(suite.T(), "20.00", r.Groups[0].Total.StringFixed(2))
	assert.Equal(suite.T(), "20.00", r.Total.StringFixed(2))
}

func (suite *ServiceTestSuite) TestSeriesAndBreakdownDay() {
	// The clock is 2024-03-20, so the window starts 2024-03-14.
	suite.mustAdd("2024-03-13", "Travel", "100.00")
	suite.mustAdd("2024-03-14", "Food", "5.00")
	suite.mustAdd("2024-03-20", "Rent", "5.00")
	suite.mustAdd("2024-03-18", "Books", "7.00")

	a, err := suite.svc.SeriesAndBreakdown(suite.ctx, owner, models.Day)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "2024-03-14", a.Since.Format(models.DateLayout))

	var periods []string
	for _, p := range a.Series {
		periods = append(periods, p.Period)
	}
	assert.Equal(suite.T(), []string{"2024-03-14", "2024-03-18", "2024-03-20"}, periods)

	var categories []string
	for _, c := range a.Breakdown {
		categories = append(categories, c.Category)
	}
	assert.Equal(suite.T(), []string{"Books", "Food", "Rent"}, categories)
	assert.True(suite.T(), decimal.NewFromInt(7).Equal(a.Breakdown[0].Total))
}

func (suite *ServiceTestSuite) TestSeriesAndBreakdownYearIsAllTime() {
	suite.mustAdd("2001-06-01", "Food", "1.00")
	suite.mustAdd("2024-03-01", "Food", "2.00")

	a, err := suite.svc.SeriesAndBreakdown(suite.ctx, owner, models.Year)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), a.Since.IsZero())
	require.Len(suite.T(), a.Series, 2)
	assert.Equal(suite.T(), "2001", a.Series[0].Period)
	assert.Equal(suite.T(), "2024", a.Series[1].Period)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestParseGranularity(t *testing.T) {
	for in, want := range map[string]models.Granularity{
		"day": models.Day, "WEEK": models.Week, " month ": models.Month, "year": models.Year,
	} {
		got, err := ParseGranularity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseGranularity("decade")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWindow(t *testing.T) {
	// Wednesday
	at := time.Date(2024, 3, 20, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		g    models.Granularity
		want string
	}{
		{models.Day, "2024-03-14"},
		{models.Week, "2024-01-29"},
		{models.Month, "2023-04-01"},
	}
	for _, tt := range tests {
		since, err := Window(tt.g, at)
		require.NoError(t, err)
		assert.Equal(t, tt.want, since.Format(models.DateLayout), string(tt.g))
	}

	since, err := Window(models.Year, at)
	require.NoError(t, err)
	assert.True(t, since.IsZero())
}

func TestWindowUsesUTC(t *testing.T) {
	// 2024-03-21 01:00 in UTC+14 is still 2024-03-20 in UTC.
	at := time.Date(2024, 3, 21, 1, 0, 0, 0, time.FixedZone("LINT", 14*3600))

	since, err := Window(models.Day, at)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-14", since.Format(models.DateLayout))
	assert.Equal(t, time.UTC, since.Location())
}
