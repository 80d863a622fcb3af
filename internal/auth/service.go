// Package auth verifies local and OAuth credentials and manages accounts.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"budgetbook/internal/models"
	"budgetbook/internal/storage"
)

var (
	// ErrDuplicateEmail is returned by Register when the email is taken.
	ErrDuplicateEmail = storage.ErrDuplicateEmail
	// ErrInvalidCredentials covers unknown emails, wrong passwords and OAuth-only accounts alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAuthProvider is returned when the OAuth exchange failed or yielded no email.
	ErrAuthProvider = errors.New("oauth provider error")
	// ErrValidation is returned for missing or malformed registration fields.
	ErrValidation = errors.New("validation error")
)

// maxPasswordBytes is the longest password bcrypt accepts.
const maxPasswordBytes = 72

const (
	methodLocal = "local"
	methodOAuth = "oauth"
)

type userStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertOAuthUser(ctx context.Context, pi models.ProviderIdentity, refresh bool) (*models.User, bool, error)
}

// Service registers and authenticates users.
type Service struct {
	store          userStore
	logger         *slog.Logger
	refreshProfile bool
}

// NewService creates an auth service. When refreshProfile is set, repeat OAuth logins
// overwrite the stored name and picture with the provider's.
func NewService(store userStore, logger *slog.Logger, refreshProfile bool) *Service {
	return &Service{store: store, logger: logger, refreshProfile: refreshProfile}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a local account.
func (s *Service) Register(ctx context.Context, name, email, password string) (user *models.User, err error) {
	defer func() { observeRegistration(methodLocal, err) }()

	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.Wrap(ErrValidation, "a valid email is required")
	}
	if password == "" {
		return nil, errors.Wrap(ErrValidation, "password is required")
	}
	if len(password) > maxPasswordBytes {
		return nil, errors.Wrapf(ErrValidation, "password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user, err = s.store.CreateUser(ctx, name, email, hash)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", slog.String("email", email))
	return user, nil
}

// AuthenticateLocal verifies an email and password pair.
func (s *Service) AuthenticateLocal(ctx context.Context, email, password string) (id models.Identity, err error) {
	defer func() { observeSignIn(methodLocal, err) }()

	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, ErrInvalidCredentials
		}
		return models.Identity{}, err
	}
	if !user.HasPassword() || !CheckPassword(password, user.PasswordHash) {
		return models.Identity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}

// AuthenticateOAuth signs in a user verified by an OAuth provider, creating the account
// on first login.
func (s *Service) AuthenticateOAuth(ctx context.Context, pi models.ProviderIdentity) (id models.Identity, err error) {
	defer func() { observeSignIn(methodOAuth, err) }()

	pi.Email = NormalizeEmail(pi.Email)
	if pi.Email == "" {
		return models.Identity{}, errors.Wrap(ErrAuthProvider, "provider returned no email")
	}

	user, created, err := s.store.UpsertOAuthUser(ctx, pi, s.refreshProfile)
	if err != nil {
		return models.Identity{}, err
	}
	if created {
		observeRegistration(methodOAuth, nil)
		s.logger.InfoContext(ctx, "user created from oauth login", slog.String("email", pi.Email))
	}
	return user.Identity(), nil
}
