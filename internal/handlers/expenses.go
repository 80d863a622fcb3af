package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"budgetbook/internal/expense"
	"budgetbook/internal/models"
)

var hundred = decimal.NewFromInt(100)

// AddExpenseForm renders the expense entry form with today's date prefilled.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "add_expense.html", map[string]string{
		"Today": time.Now().Format(models.DateLayout),
	})
}

// AddExpense validates and records an expense for the signed-in user.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentityFromContext(r)

	if err := r.ParseForm(); err != nil {
		h.flash(w, flashDanger, "Invalid form submission")
		http.Redirect(w, r, "/add_expense", http.StatusFound)
		return
	}

	_, err := h.expenses.Add(r.Context(), id.Email,
		r.FormValue("date"),
		r.FormValue("category"),
		r.FormValue("description"),
		r.FormValue("amount"),
	)
	switch {
	case err == nil:
		h.flash(w, flashSuccess, "Expense added successfully!")
	case errors.Is(err, expense.ErrValidation):
		h.flash(w, flashDanger, userMessage(err, expense.ErrValidation))
	default:
		h.logger.ErrorContext(r.Context(), "failed to add expense",
			slog.String("user", id.Email), slog.Any("error", err))
		h.flash(w, flashDanger, "An error occurred while adding the expense.")
	}
	http.Redirect(w, r, "/add_expense", http.StatusFound)
}

type reportRow struct {
	Period      string
	Date        string
	Category    string
	Description string
	Amount      decimal.Decimal
	Percent     string
}

type reportView struct {
	TimePeriod models.Granularity
	Periods    []models.Granularity
	Rows       []reportRow
	Total      decimal.Decimal
}

// TotalExpenses renders the tabular report. Unknown or unsupported periods fall back to day.
func (h *Handlers) TotalExpenses(w http.ResponseWriter, r *http.Request) {
	id, _ := GetIdentityFromContext(r)

	g, err := expense.ParseGranularity(r.URL.Query().Get("time_period"))
	if err != nil || g == models.Week {
		g = models.Day
	}

	rep, err := h.expenses.ListAndTotal(r.Context(), id.Email, g)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build report",
			slog.String("user", id.Email), slog.Any("error", err))
		http.Error(w, "Failed to load expenses", http.StatusInternalServerError)
		return
	}

	view := reportView{
		TimePeriod: g,
		Periods:    []models.Granularity{models.Day, models.Month, models.Year},
		Total:      rep.Total,
	}
	for _, e := range rep.Expenses {
		view.Rows = append(view.Rows, reportRow{
			Date:        e.Date.Format(models.DateLayout),
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount,
			Percent:     percentOf(e.Amount, rep.Total),
		})
	}
	for _, p := range rep.Groups {
		view.Rows = append(view.Rows, reportRow{
			Period:   p.Period,
			Category: p.Category,
			Amount:   p.Total,
			Percent:  percentOf(p.Total, rep.Total),
		})
	}

	h.render(w, r, "total_expenses.html", view)
}

func percentOf(part, total decimal.Decimal) string {
	if total.IsZero() {
		return "-"
	}
	return part.Mul(hundred).Div(total).StringFixed(1) + "%"
}
