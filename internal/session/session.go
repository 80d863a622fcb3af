// Package session binds an authenticated identity to a browser session.
package session

import (
	"fmt"
	"net/http"
	"time"

	"budgetbook/internal/models"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"
	// DefaultDuration is how long sessions last (30 days).
	DefaultDuration = 30 * 24 * time.Hour
)

// Backend names accepted by New.
const (
	BackendCookie = "cookie"
	BackendDB     = "db"
)

// Manager starts, reads and ends sessions.
type Manager interface {
	// Start binds id to the browser session, replacing any previous binding.
	Start(w http.ResponseWriter, r *http.Request, id models.Identity) error
	// Current returns the bound identity, or false for anonymous requests.
	Current(w http.ResponseWriter, r *http.Request) (models.Identity, bool)
	// End clears the binding.
	End(w http.ResponseWriter, r *http.Request) error
}

// Options configure the session cookie.
type Options struct {
	Secure   bool
	Duration time.Duration
}

func (o Options) duration() time.Duration {
	if o.Duration <= 0 {
		return DefaultDuration
	}
	return o.Duration
}

// New returns the Manager for the named backend.
func New(backend string, secret []byte, store Store, opts Options) (Manager, error) {
	switch backend {
	case BackendCookie, "":
		return NewCookieManager(secret, opts)
	case BackendDB:
		return NewDBManager(store, opts), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", backend)
}

func setCookie(w http.ResponseWriter, value string, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(opts.duration().Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, opts Options) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
