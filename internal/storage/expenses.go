package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"budgetbook/internal/models"
)

// CreateExpense inserts a new expense and sets its ID.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		err := db.psql.Insert("expenses").
			Columns("user_email", "date", "category", "description", "amount_cents").
			Values(e.UserEmail, e.Date.Format(models.DateLayout), e.Category, e.Description, toCents(e.Amount)).
			Suffix("RETURNING id").
			RunWith(tx).
			QueryRowContext(ctx).
			Scan(&e.ID)
		return errors.Wrap(err, "insert expense")
	})
}

// ListExpenses retrieves all expenses of a user, newest first.
func (db *DB) ListExpenses(ctx context.Context, email string) ([]models.Expense, error) {
	rows, err := db.psql.Select("id", "user_email", db.dialect.dateText("date"), "category", "description", "amount_cents").
		From("expenses").
		Where(sq.Eq{"user_email": email}).
		OrderBy("date DESC", "id DESC").
		RunWith(db.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var (
			e     models.Expense
			date  string
			cents int64
		)
		if err := rows.Scan(&e.ID, &e.UserEmail, &date, &e.Category, &e.Description, &cents); err != nil {
			return nil, errors.Wrap(err, "scan expense")
		}
		if e.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, errors.Wrapf(err, "parse date of expense %d", e.ID)
		}
		e.Amount = fromCents(cents)
		expenses = append(expenses, e)
	}

	return expenses, errors.Wrap(rows.Err(), "list expenses")
}

// GroupedTotals sums a user's expenses per period and category, newest period first.
// Categories within a period are ordered by name.
func (db *DB) GroupedTotals(ctx context.Context, email string, g models.Granularity) ([]models.PeriodTotal, error) {
	period, err := db.dialect.period(g, "date")
	if err != nil {
		return nil, err
	}

	rows, err := db.psql.Select(period+" AS bucket", "category", "SUM(amount_cents) AS total").
		From("expenses").
		Where(sq.Eq{"user_email": email}).
		GroupBy("bucket", "category").
		OrderBy("bucket DESC", "category ASC").
		RunWith(db.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "grouped totals")
	}
	defer rows.Close()

	var totals []models.PeriodTotal
	for rows.Next() {
		var (
			t     models.PeriodTotal
			cents int64
		)
		if err := rows.Scan(&t.Period, &t.Category, &cents); err != nil {
			return nil, errors.Wrap(err, "scan grouped total")
		}
		t.Total = fromCents(cents)
		totals = append(totals, t)
	}

	return totals, errors.Wrap(rows.Err(), "grouped totals")
}

// GrandTotal returns the sum of all of a user's expenses.
func (db *DB) GrandTotal(ctx context.Context, email string) (decimal.Decimal, error) {
	var cents int64
	err := db.psql.Select("COALESCE(SUM(amount_cents), 0)").
		From("expenses").
		Where(sq.Eq{"user_email": email}).
		RunWith(db.conn).
		QueryRowContext(ctx).
		Scan(&cents)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "grand total")
	}
	return fromCents(cents), nil
}

// Series sums a user's expenses per period, oldest period first. A zero since means all time.
func (db *DB) Series(ctx context.Context, email string, g models.Granularity, since time.Time) ([]models.SeriesPoint, error) {
	period, err := db.dialect.period(g, "date")
	if err != nil {
		return nil, err
	}

	rows, err := db.psql.Select(period+" AS bucket", "SUM(amount_cents) AS total").
		From("expenses").
		Where(ownerSince(email, since)).
		GroupBy("bucket").
		OrderBy("bucket ASC").
		RunWith(db.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "series")
	}
	defer rows.Close()

	var points []models.SeriesPoint
	for rows.Next() {
		var (
			p     models.SeriesPoint
			cents int64
		)
		if err := rows.Scan(&p.Period, &cents); err != nil {
			return nil, errors.Wrap(err, "scan series point")
		}
		p.Total = fromCents(cents)
		points = append(points, p)
	}

	return points, errors.Wrap(rows.Err(), "series")
}

// CategoryBreakdown sums a user's expenses per category since the given date, largest first.
// Equal totals are ordered by category name. A zero since means all time.
func (db *DB) CategoryBreakdown(ctx context.Context, email string, since time.Time) ([]models.CategoryTotal, error) {
	rows, err := db.psql.Select("category", "SUM(amount_cents) AS total").
		From("expenses").
		Where(ownerSince(email, since)).
		GroupBy("category").
		OrderBy("total DESC", "category ASC").
		RunWith(db.conn).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "category breakdown")
	}
	defer rows.Close()

	var totals []models.CategoryTotal
	for rows.Next() {
		var (
			t     models.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&t.Category, &cents); err != nil {
			return nil, errors.Wrap(err, "scan category total")
		}
		t.Total = fromCents(cents)
		totals = append(totals, t)
	}

	return totals, errors.Wrap(rows.Err(), "category breakdown")
}

func ownerSince(email string, since time.Time) sq.Sqlizer {
	cond := sq.And{sq.Eq{"user_email": email}}
	if !since.IsZero() {
		cond = append(cond, sq.GtOrEq{"date": since.Format(models.DateLayout)})
	}
	return cond
}
