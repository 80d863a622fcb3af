package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"budgetbook/internal/models"
)

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token, email string, expiresAt time.Time) error {
	now := time.Now().UTC()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := db.psql.Insert("sessions").
			Columns("token", "user_email", "expires_at", "last_activity").
			Values(token, email, expiresAt.UTC(), now).
			RunWith(tx).
			ExecContext(ctx)
		return errors.Wrap(err, "create session")
	})
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (db *DB) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
// Unknown and expired tokens yield ErrNotFound.
func (db *DB) ValidateSessionWithInfo(ctx context.Context, token string) (*SessionInfo, error) {
	row := db.psql.Select("u.id", "u.name", "u.email", "u.password_hash", "u.picture", "u.created_at",
		"s.last_activity", "s.expires_at").
		From("sessions s").
		Join("users u ON s.user_email = u.email").
		Where(sq.Eq{"s.token": token}).
		Where(sq.Gt{"s.expires_at": time.Now().UTC()}).
		RunWith(db.conn).
		QueryRowContext(ctx)

	var (
		u                     models.User
		name, hash, picture   sql.NullString
		lastActivity, expires time.Time
	)
	err := row.Scan(&u.ID, &name, &u.Email, &hash, &picture, &u.CreatedAt, &lastActivity, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "validate session")
	}
	u.Name, u.PasswordHash, u.Picture = name.String, hash.String, picture.String

	return &SessionInfo{
		User:         &u,
		LastActivity: lastActivity,
		ExpiresAt:    expires,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	now := time.Now().UTC()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := db.psql.Update("sessions").
			Set("last_activity", now).
			Set("expires_at", newExpiresAt.UTC()).
			Where(sq.Eq{"token": token}).
			RunWith(tx).
			ExecContext(ctx)
		return errors.Wrap(err, "renew session")
	})
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := db.psql.Delete("sessions").
			Where(sq.Eq{"token": token}).
			RunWith(tx).
			ExecContext(ctx)
		return errors.Wrap(err, "delete session")
	})
}

// CleanExpiredSessions removes all expired sessions and returns how many were removed.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	var n int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := db.psql.Delete("sessions").
			Where(sq.LtOrEq{"expires_at": time.Now().UTC()}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return errors.Wrap(err, "clean expired sessions")
		}
		n, err = res.RowsAffected()
		return errors.Wrap(err, "clean expired sessions")
	})
	return n, err
}
