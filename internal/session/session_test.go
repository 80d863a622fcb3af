package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbook/internal/models"
	"budgetbook/internal/storage"
)

var alice = models.Identity{Name: "Alice", Email: "alice@example.com", Picture: "a.png"}

// roundTrip starts a session and returns a request carrying the resulting cookie.
func roundTrip(t *testing.T, m Manager, id models.Identity) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, m.Start(w, httptest.NewRequest(http.MethodPost, "/signin", nil), id))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(cookies[0])
	return r
}

func TestCookieManagerRoundTrip(t *testing.T) {
	m, err := NewCookieManager([]byte("secret"), Options{})
	require.NoError(t, err)

	r := roundTrip(t, m, alice)
	got, ok := m.Current(httptest.NewRecorder(), r)
	require.True(t, ok)
	assert.Equal(t, alice, got)
}

func TestCookieManagerAnonymous(t *testing.T) {
	m, err := NewCookieManager([]byte("secret"), Options{})
	require.NoError(t, err)

	_, ok := m.Current(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestCookieManagerRejectsForeignSignature(t *testing.T) {
	other, err := NewCookieManager([]byte("other-secret"), Options{})
	require.NoError(t, err)
	m, err := NewCookieManager([]byte("secret"), Options{})
	require.NoError(t, err)

	r := roundTrip(t, other, alice)
	w := httptest.NewRecorder()
	_, ok := m.Current(w, r)
	assert.False(t, ok)

	// The bad cookie is cleared
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestCookieManagerExpired(t *testing.T) {
	m, err := NewCookieManager([]byte("secret"), Options{Duration: time.Hour})
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	r := roundTrip(t, m, alice)
	_, ok := m.Current(httptest.NewRecorder(), r)
	assert.False(t, ok)
}

func TestCookieManagerEnd(t *testing.T) {
	m, err := NewCookieManager([]byte("secret"), Options{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, m.End(w, httptest.NewRequest(http.MethodGet, "/logout", nil)))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestNewCookieManagerRequiresSecret(t *testing.T) {
	_, err := NewCookieManager(nil, Options{})
	assert.Error(t, err)
}

func TestNewBackends(t *testing.T) {
	m, err := New(BackendCookie, []byte("secret"), nil, Options{})
	require.NoError(t, err)
	assert.IsType(t, &CookieManager{}, m)

	m, err = New(BackendDB, nil, nil, Options{})
	require.NoError(t, err)
	assert.IsType(t, &DBManager{}, m)

	_, err = New("redis", nil, nil, Options{})
	assert.Error(t, err)
}

func newDBManager(t *testing.T, opts Options) (*DBManager, *storage.DB) {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.CreateUser(context.Background(), alice.Name, alice.Email, "hash")
	require.NoError(t, err)
	return NewDBManager(db, opts), db
}

func TestDBManagerRoundTrip(t *testing.T) {
	m, _ := newDBManager(t, Options{})

	r := roundTrip(t, m, alice)
	got, ok := m.Current(httptest.NewRecorder(), r)
	require.True(t, ok)
	assert.Equal(t, alice.Email, got.Email)
	assert.Equal(t, alice.Name, got.Name)

	require.NoError(t, m.End(httptest.NewRecorder(), r))
	_, ok = m.Current(httptest.NewRecorder(), r)
	assert.False(t, ok, "session must be gone after End")
}

func TestDBManagerUnknownToken(t *testing.T) {
	m, _ := newDBManager(t, Options{})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	w := httptest.NewRecorder()
	_, ok := m.Current(w, r)
	assert.False(t, ok)
	require.Len(t, w.Result().Cookies(), 1)
}

func TestDBManagerRollingRenewal(t *testing.T) {
	m, db := newDBManager(t, Options{Duration: time.Hour})

	r := roundTrip(t, m, alice)
	token, err := r.Cookie(CookieName)
	require.NoError(t, err)

	// Push the session into the second half of its lifetime
	soon := time.Now().Add(10 * time.Minute)
	require.NoError(t, db.RenewSession(context.Background(), token.Value, soon))

	w := httptest.NewRecorder()
	_, ok := m.Current(w, r)
	require.True(t, ok)
	assert.Len(t, w.Result().Cookies(), 1, "renewal refreshes the cookie")

	info, err := db.ValidateSessionWithInfo(context.Background(), token.Value)
	require.NoError(t, err)
	assert.True(t, info.ExpiresAt.After(soon.Add(30*time.Minute)))
}
