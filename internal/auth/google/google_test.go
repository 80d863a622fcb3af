package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"budgetbook/internal/auth"
)

func fakeGoogle(t *testing.T, userinfo map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(userinfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(srv *httptest.Server) *Client {
	return newWithEndpoints(
		Config{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/google_login"},
		oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		srv.URL+"/",
	)
}

func TestNewWithoutCredentials(t *testing.T) {
	assert.Nil(t, New(Config{}))
	assert.Nil(t, New(Config{ClientID: "id"}))
	assert.NotNil(t, New(Config{ClientID: "id", ClientSecret: "secret"}))
}

func TestAuthCodeURL(t *testing.T) {
	c := New(Config{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/google_login"})
	u, err := url.Parse(c.AuthCodeURL("xyz"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "xyz", q.Get("state"))
	assert.Equal(t, "id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestExchange(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{
		"email":   "alice@example.com",
		"name":    "Alice",
		"picture": "https://example.com/alice.png",
	})

	pi, err := testClient(srv).Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", pi.Email)
	assert.Equal(t, "Alice", pi.Name)
	assert.Equal(t, "https://example.com/alice.png", pi.Picture)
}

func TestExchangeNoEmail(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{"name": "Anonymous"})

	_, err := testClient(srv).Exchange(context.Background(), "good-code")
	assert.ErrorIs(t, err, auth.ErrAuthProvider)
}

func TestExchangeBadCode(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{"email": "alice@example.com"})

	_, err := testClient(srv).Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, auth.ErrAuthProvider)

	_, err = testClient(srv).Exchange(context.Background(), "")
	assert.ErrorIs(t, err, auth.ErrAuthProvider)
}
