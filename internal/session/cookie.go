package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"budgetbook/internal/models"
)

type claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// CookieManager keeps the identity in an HMAC-signed token inside the cookie itself.
type CookieManager struct {
	secret []byte
	opts   Options
	now    func() time.Time
}

// NewCookieManager returns a cookie-backed Manager signing with secret.
func NewCookieManager(secret []byte, opts Options) (*CookieManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("cookie sessions require a secret key")
	}
	return &CookieManager{secret: secret, opts: opts, now: time.Now}, nil
}

func (m *CookieManager) Start(w http.ResponseWriter, _ *http.Request, id models.Identity) error {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name:    id.Name,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.duration())),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("sign session token: %w", err)
	}
	setCookie(w, signed, m.opts)
	return nil
}

func (m *CookieManager) Current(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	value := cookieValue(r)
	if value == "" {
		return models.Identity{}, false
	}

	var c claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(value, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid || c.Subject == "" {
		clearCookie(w, m.opts)
		return models.Identity{}, false
	}

	return models.Identity{Name: c.Name, Email: c.Subject, Picture: c.Picture}, true
}

func (m *CookieManager) End(w http.ResponseWriter, _ *http.Request) error {
	clearCookie(w, m.opts)
	return nil
}
