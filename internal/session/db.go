package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"budgetbook/internal/auth"
	"budgetbook/internal/models"
	"budgetbook/internal/storage"
)

// Store persists server-side sessions.
type Store interface {
	CreateSession(ctx context.Context, token, email string, expiresAt time.Time) error
	ValidateSessionWithInfo(ctx context.Context, token string) (*storage.SessionInfo, error)
	RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
}

// DBManager keeps an opaque token in the cookie and the session row in the database.
// Sessions past the halfway point of their lifetime are renewed on use, so active
// users stay signed in while idle sessions expire.
type DBManager struct {
	store Store
	opts  Options
}

// NewDBManager returns a database-backed Manager.
func NewDBManager(store Store, opts Options) *DBManager {
	return &DBManager{store: store, opts: opts}
}

func (m *DBManager) Start(w http.ResponseWriter, r *http.Request, id models.Identity) error {
	if old := cookieValue(r); old != "" {
		_ = m.store.DeleteSession(r.Context(), old)
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}

	expiresAt := time.Now().Add(m.opts.duration())
	if err := m.store.CreateSession(r.Context(), token, id.Email, expiresAt); err != nil {
		return err
	}
	setCookie(w, token, m.opts)
	return nil
}

func (m *DBManager) Current(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	token := cookieValue(r)
	if token == "" {
		return models.Identity{}, false
	}

	info, err := m.store.ValidateSessionWithInfo(r.Context(), token)
	if err != nil {
		// Invalid or expired session, clear the cookie
		clearCookie(w, m.opts)
		return models.Identity{}, false
	}

	now := time.Now()
	if info.ExpiresAt.Sub(now) < m.opts.duration()/2 {
		// If renewal fails, just continue with the current session
		if err := m.store.RenewSession(r.Context(), token, now.Add(m.opts.duration())); err == nil {
			setCookie(w, token, m.opts)
		}
	}

	return info.User.Identity(), true
}

func (m *DBManager) End(w http.ResponseWriter, r *http.Request) error {
	clearCookie(w, m.opts)
	if token := cookieValue(r); token != "" {
		return m.store.DeleteSession(r.Context(), token)
	}
	return nil
}
