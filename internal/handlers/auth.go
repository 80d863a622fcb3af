package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"budgetbook/internal/auth"
)

const oauthStateCookie = "oauth_state"

// SignInForm renders the sign-in page.
func (h *Handlers) SignInForm(w http.ResponseWriter, r *http.Request) {
	// If already signed in, go home
	if _, ok := h.sessions.Current(w, r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, r, "signin.html", nil)
}

// SignIn handles the sign-in form submission.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flash(w, flashDanger, "Invalid form submission")
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		h.flash(w, flashDanger, "Email and password are required")
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	id, err := h.auth.AuthenticateLocal(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.ErrorContext(r.Context(), "local sign-in failed", slog.Any("error", err))
			h.flash(w, flashDanger, "An error occurred. Please try again.")
		} else {
			h.flash(w, flashDanger, "Invalid email or password!")
		}
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	if err := h.sessions.Start(w, r, id); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to start session", slog.Any("error", err))
		h.flash(w, flashDanger, "An error occurred. Please try again.")
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	h.flash(w, flashSuccess, "Signed in successfully!")
	http.Redirect(w, r, "/", http.StatusFound)
}

// SignUpForm renders the registration page.
func (h *Handlers) SignUpForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "signup.html", nil)
}

// SignUp creates a local account. The new user signs in separately.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.flash(w, flashDanger, "Invalid form submission")
		http.Redirect(w, r, "/signup", http.StatusFound)
		return
	}

	_, err := h.auth.Register(r.Context(), r.FormValue("name"), r.FormValue("email"), r.FormValue("password"))
	switch {
	case err == nil:
		h.flash(w, flashSuccess, "Sign up successful! Please sign in.")
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	case errors.Is(err, auth.ErrDuplicateEmail):
		h.flash(w, flashDanger, "Email already exists!")
	case errors.Is(err, auth.ErrValidation):
		h.flash(w, flashDanger, userMessage(err, auth.ErrValidation))
	default:
		h.logger.ErrorContext(r.Context(), "registration failed", slog.Any("error", err))
		h.flash(w, flashDanger, "An error occurred. Please try again.")
	}
	http.Redirect(w, r, "/signup", http.StatusFound)
}

// OAuthLogin starts the authorization-code flow of the provider named in the path.
func (h *Handlers) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["provider"] != "google" {
		http.NotFound(w, r)
		return
	}
	if h.oauth == nil {
		h.flash(w, flashWarning, "Google sign-in is not available. Please use your email and password.")
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback completes Google sign-in: it checks state, exchanges the code,
// upserts the user and starts a session.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.flash(w, flashWarning, "Google sign-in is not available. Please use your email and password.")
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	fail := func(msg string) {
		h.flash(w, flashDanger, msg)
		http.Redirect(w, r, "/signin", http.StatusFound)
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.WarnContext(r.Context(), "google sign-in denied", slog.String("error", e))
		fail("Google sign-in was cancelled.")
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		fail("Google sign-in failed. Please try again.")
		return
	}

	pi, err := h.oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "google exchange failed", slog.Any("error", err))
		fail("Failed to fetch user info from Google.")
		return
	}

	id, err := h.auth.AuthenticateOAuth(r.Context(), pi)
	if err != nil {
		if errors.Is(err, auth.ErrAuthProvider) {
			fail("Google account does not have an email associated.")
			return
		}
		h.logger.ErrorContext(r.Context(), "saving google user failed", slog.Any("error", err))
		fail("Login failed due to a database error. Try again.")
		return
	}

	if err := h.sessions.Start(w, r, id); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to start session", slog.Any("error", err))
		fail("An error occurred. Please try again.")
		return
	}

	h.flash(w, flashSuccess, "Signed in successfully via Google!")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout ends the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to end session", slog.Any("error", err))
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// userMessage strips the sentinel suffix from a wrapped validation error.
func userMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" || msg == sentinel.Error() {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
