package handlers

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"budgetbook/internal/auth"
	"budgetbook/internal/expense"
	"budgetbook/internal/models"
	"budgetbook/internal/session"
)

// Context key type to avoid collisions.
type contextKey string

// IdentityContextKey is the context key for the authenticated identity.
const IdentityContextKey contextKey = "identity"

// OAuthProvider runs an external authorization-code flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.ProviderIdentity, error)
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Auth     *auth.Service
	Expenses *expense.Service
	Sessions session.Manager
	// OAuth is nil when Google sign-in is not configured.
	OAuth        OAuthProvider
	Logger       *slog.Logger
	Templates    fs.FS
	SecureCookie bool
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *auth.Service
	expenses     *expense.Service
	sessions     session.Manager
	oauth        OAuthProvider
	logger       *slog.Logger
	secureCookie bool
	views        map[string]*template.Template
}

var views = []string{
	"home.html",
	"about.html",
	"contact.html",
	"signin.html",
	"signup.html",
	"add_expense.html",
	"total_expenses.html",
	"view_analysis.html",
	"profile.html",
}

// NewHandlers creates a new Handlers instance and parses every view.
func NewHandlers(d Deps) (*Handlers, error) {
	h := &Handlers{
		auth:         d.Auth,
		expenses:     d.Expenses,
		sessions:     d.Sessions,
		oauth:        d.OAuth,
		logger:       d.Logger,
		secureCookie: d.SecureCookie,
		views:        make(map[string]*template.Template, len(views)),
	}

	for _, v := range views {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).
			ParseFS(d.Templates, "templates/base.html", "templates/"+v)
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", v, err)
		}
		h.views[v] = tmpl
	}
	return h, nil
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// page is the data every view is rendered with.
type page struct {
	User         *models.Identity
	Flash        *Flash
	OAuthEnabled bool
	Data         any
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, view string, data any) {
	tmpl, ok := h.views[view]
	if !ok {
		h.logger.ErrorContext(r.Context(), "unknown view", slog.String("view", view))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	p := page{
		Flash:        popFlash(w, r),
		OAuthEnabled: h.oauth != nil,
		Data:         data,
	}
	if id, ok := GetIdentityFromContext(r); ok {
		p.User = &id
	} else if id, ok := h.sessions.Current(w, r); ok {
		p.User = &id
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", p); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution failed", slog.String("view", view), slog.Any("error", err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// GetIdentityFromContext retrieves the authenticated identity from request context.
func GetIdentityFromContext(r *http.Request) (models.Identity, bool) {
	id, ok := r.Context().Value(IdentityContextKey).(models.Identity)
	return id, ok
}

// RequireAuth redirects anonymous visitors to the sign-in page.
func (h *Handlers) RequireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.sessions.Current(w, r)
		if !ok {
			setFlash(w, flashWarning, "Please sign in!", h.secureCookie)
			http.Redirect(w, r, "/signin", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), IdentityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAPIAuth answers anonymous API calls with 401.
func (h *Handlers) RequireAPIAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.sessions.Current(w, r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "User not authenticated"})
			return
		}
		ctx := context.WithValue(r.Context(), IdentityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
