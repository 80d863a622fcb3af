package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers the application pages and API on r.
func (h *Handlers) Routes(r *mux.Router) {
	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/about", h.About).Methods(http.MethodGet)
	r.HandleFunc("/contact", h.ContactForm).Methods(http.MethodGet)
	r.HandleFunc("/contact", h.Contact).Methods(http.MethodPost)

	r.HandleFunc("/signin", h.SignInForm).Methods(http.MethodGet)
	r.HandleFunc("/signin", h.SignIn).Methods(http.MethodPost)
	r.HandleFunc("/signup", h.SignUpForm).Methods(http.MethodGet)
	r.HandleFunc("/signup", h.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/login/{provider}", h.OAuthLogin).Methods(http.MethodGet)
	r.HandleFunc("/google_login", h.GoogleCallback).Methods(http.MethodGet)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodGet)

	r.Handle("/add_expense", h.RequireAuth(h.AddExpenseForm)).Methods(http.MethodGet)
	r.Handle("/add_expense", h.RequireAuth(h.AddExpense)).Methods(http.MethodPost)
	r.Handle("/total_expenses", h.RequireAuth(h.TotalExpenses)).Methods(http.MethodGet)
	r.Handle("/view_analysis", h.RequireAuth(h.ViewAnalysis)).Methods(http.MethodGet)
	r.Handle("/profile", h.RequireAuth(h.Profile)).Methods(http.MethodGet)
	r.Handle("/api/analysis_data", h.RequireAPIAuth(h.AnalysisData)).Methods(http.MethodGet)
}
