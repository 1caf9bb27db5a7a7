package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spt3g-viewer/internal/domain"
)

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator("test-secret", "astro", "hunter2", time.Hour)
	require.NoError(t, err)
	return a
}

func TestNewAuthenticator_Rejects(t *testing.T) {
	_, err := NewAuthenticator("", "u", "p", time.Hour)
	require.Error(t, err)
	_, err = NewAuthenticator("s", "", "p", time.Hour)
	require.Error(t, err)
	_, err = NewAuthenticator("s", "u", "p", 0)
	require.Error(t, err)
}

func TestAuthenticator_CheckCredentials(t *testing.T) {
	a := newTestAuth(t)
	assert.True(t, a.CheckCredentials("astro", "hunter2"))
	assert.False(t, a.CheckCredentials("astro", "wrong"))
	assert.False(t, a.CheckCredentials("other", "hunter2"))
}

func TestAuthenticator_IssueValidate(t *testing.T) {
	a := newTestAuth(t)

	token, exp, err := a.Issue("astro")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	name, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "astro", name)
}

func TestAuthenticator_ValidateRejects(t *testing.T) {
	a := newTestAuth(t)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewAuthenticator("other-secret", "astro", "hunter2", time.Hour)
		require.NoError(t, err)
		token, _, err := other.Issue("astro")
		require.NoError(t, err)
		_, err = a.Validate(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, _, err := a.Issue("astro")
		require.NoError(t, err)
		later := *a
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = later.Validate(token)
		require.Error(t, err)
	})

	t.Run("unknown subject", func(t *testing.T) {
		token, _, err := a.Issue("mallory")
		require.NoError(t, err)
		_, err = a.Validate(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := a.Validate("not-a-jwt")
		require.Error(t, err)
	})
}

func TestRequireLogin(t *testing.T) {
	a := newTestAuth(t)
	var gotUser string
	handler := a.RequireLogin("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := domain.UserFromContext(r.Context())
		gotUser = u.Name
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no cookie redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("bad cookie redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: "junk"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("valid cookie passes", func(t *testing.T) {
		token, _, err := a.Issue("astro")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "astro", gotUser)
	})
}

func TestRequireToken(t *testing.T) {
	a := newTestAuth(t)
	handler := a.RequireToken()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	token, _, err := a.Issue("astro")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetAndClearCookie(t *testing.T) {
	a := newTestAuth(t)
	rec := httptest.NewRecorder()
	a.SetCookie(rec, "tok", time.Now().Add(time.Hour), "/viewer/", true)
	c := rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, AuthCookie, c[0].Name)
	assert.Equal(t, "/viewer/", c[0].Path)
	assert.True(t, c[0].HttpOnly)
	assert.True(t, c[0].Secure)

	rec = httptest.NewRecorder()
	ClearCookie(rec, "/")
	c = rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, -1, c[0].MaxAge)
}

func TestRequireForwardedBy(t *testing.T) {
	handler := RequireForwardedBy("CloudFront")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-By", "CloudFront")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
