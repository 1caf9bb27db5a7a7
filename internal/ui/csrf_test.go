package ui

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireCSRF_RejectsMissingCookie(t *testing.T) {
	h := &Handler{BasePath: "/"}
	r := httptest.NewRequest(http.MethodPost, "/viewer/A/notes", strings.NewReader("note=x"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	h.RequireCSRF(noContent()).ServeHTTP(rr, r)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), "Missing CSRF token cookie.")
}

func TestRequireCSRF_AcceptsFormField(t *testing.T) {
	h := &Handler{BasePath: "/"}
	form := url.Values{}
	form.Set("csrf_token", "abc123")
	r := httptest.NewRequest(http.MethodPost, "/viewer/A/notes", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
	rr := httptest.NewRecorder()

	h.RequireCSRF(noContent()).ServeHTTP(rr, r)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireCSRF_AcceptsHeader(t *testing.T) {
	h := &Handler{BasePath: "/"}
	r := httptest.NewRequest(http.MethodPost, "/theme", nil)
	r.Header.Set("X-CSRF-Token", "abc123")
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
	rr := httptest.NewRecorder()

	h.RequireCSRF(noContent()).ServeHTTP(rr, r)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireCSRF_SkipsSafeMethods(t *testing.T) {
	h := &Handler{BasePath: "/"}
	rr := httptest.NewRecorder()
	h.RequireCSRF(noContent()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestEnsureCSRFToken_SetsCookieWhenMissing(t *testing.T) {
	h := &Handler{BasePath: "/app/"}
	r := httptest.NewRequest(http.MethodGet, "/app/", nil)
	rr := httptest.NewRecorder()

	h.EnsureCSRFToken(noContent()).ServeHTTP(rr, r)
	require.Equal(t, http.StatusNoContent, rr.Code)
	setCookie := rr.Header().Get("Set-Cookie")
	require.Contains(t, setCookie, csrfCookieName+"=")
	require.Contains(t, setCookie, "Path=/app/")
}

func TestEnsureCSRFToken_KeepsExistingCookie(t *testing.T) {
	h := &Handler{BasePath: "/"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "abc123"})
	rr := httptest.NewRecorder()

	var seen string
	h.EnsureCSRFToken(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(csrfContextKey{}).(string)
	})).ServeHTTP(rr, r)
	require.Empty(t, rr.Header().Get("Set-Cookie"))
	require.Equal(t, "abc123", seen)
}
