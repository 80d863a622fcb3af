// Package google runs the Google OAuth authorization-code flow and fetches the
// signed-in user's profile.
package google

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	oauthapi "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"budgetbook/internal/auth"
	"budgetbook/internal/models"
)

var scopes = []string{
	"openid",
	oauthapi.UserinfoProfileScope,
	oauthapi.UserinfoEmailScope,
}

// Config holds the OAuth client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client exchanges authorization codes for Google identities.
type Client struct {
	oauth    *oauth2.Config
	endpoint string
}

// New returns a client, or nil when no credentials are configured.
func New(cfg Config) *Client {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       scopes,
		},
	}
}

// newWithEndpoints points the client at custom auth and API endpoints.
func newWithEndpoints(cfg Config, authEndpoint oauth2.Endpoint, apiEndpoint string) *Client {
	c := New(cfg)
	if c != nil {
		c.oauth.Endpoint = authEndpoint
		c.endpoint = apiEndpoint
	}
	return c
}

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's verified profile.
// All failures wrap auth.ErrAuthProvider.
func (c *Client) Exchange(ctx context.Context, code string) (models.ProviderIdentity, error) {
	if code == "" {
		return models.ProviderIdentity{}, errors.Wrap(auth.ErrAuthProvider, "missing authorization code")
	}

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return models.ProviderIdentity{}, errors.Wrapf(auth.ErrAuthProvider, "token exchange: %v", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(c.oauth.Client(ctx, tok))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := oauthapi.NewService(ctx, opts...)
	if err != nil {
		return models.ProviderIdentity{}, errors.Wrapf(auth.ErrAuthProvider, "userinfo client: %v", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return models.ProviderIdentity{}, errors.Wrapf(auth.ErrAuthProvider, "fetch userinfo: %v", err)
	}
	if info.Email == "" {
		return models.ProviderIdentity{}, errors.Wrap(auth.ErrAuthProvider, "google account has no email")
	}

	return models.ProviderIdentity{
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
