package storage

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"budgetbook/internal/models"
)

var userColumns = []string{"id", "name", "email", "password_hash", "picture", "created_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                   models.User
		name, hash, picture sql.NullString
	)
	if err := row.Scan(&u.ID, &name, &u.Email, &hash, &picture, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "scan user")
	}
	u.Name = name.String
	u.PasswordHash = hash.String
	u.Picture = picture.String
	return &u, nil
}

// CreateUser inserts a new user. It returns ErrDuplicateEmail when the email is taken,
// in which case nothing is written.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	var user *models.User
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := db.psql.Insert("users").
			Columns("name", "email", "password_hash").
			Values(nullString(name), email, nullString(passwordHash)).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			if db.dialect.uniqueViolation(err) {
				return ErrDuplicateEmail
			}
			return errors.Wrap(err, "insert user")
		}

		user, err = db.getUserByEmail(ctx, tx, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserByEmail(ctx, db.conn, email)
}

func (db *DB) getUserByEmail(ctx context.Context, runner sq.BaseRunner, email string) (*models.User, error) {
	row := db.psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": email}).
		RunWith(runner).
		QueryRowContext(ctx)
	return scanUser(row)
}

// UpsertOAuthUser creates the user on first login. For an existing user the stored name and
// picture are replaced only when refresh is set. It reports whether a row was created.
func (db *DB) UpsertOAuthUser(ctx context.Context, pi models.ProviderIdentity, refresh bool) (*models.User, bool, error) {
	var (
		user    *models.User
		created bool
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := db.psql.Insert("users").
			Columns("name", "email", "picture").
			Values(nullString(pi.Name), pi.Email, nullString(pi.Picture)).
			Suffix("ON CONFLICT (email) DO NOTHING").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return errors.Wrap(err, "insert oauth user")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "insert oauth user")
		}
		created = n > 0

		if !created && refresh {
			_, err := db.psql.Update("users").
				Set("name", nullString(pi.Name)).
				Set("picture", nullString(pi.Picture)).
				Where(sq.Eq{"email": pi.Email}).
				RunWith(tx).
				ExecContext(ctx)
			if err != nil {
				return errors.Wrap(err, "refresh oauth user")
			}
		}

		user, err = db.getUserByEmail(ctx, tx, pi.Email)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.psql.Select("COUNT(*)").
		From("users").
		RunWith(db.conn).
		QueryRowContext(ctx).
		Scan(&count)
	return count, errors.Wrap(err, "count users")
}
