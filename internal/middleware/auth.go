package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"spt3g-viewer/internal/domain"
)

// AuthCookie is the name of the cookie carrying the login token.
const AuthCookie = "spt3g_auth"

const tokenIssuer = "spt3g-viewer"

// Authenticator checks the single configured user and issues HS256 tokens
// for logged-in browsers and API clients.
type Authenticator struct {
	secret   []byte
	username string
	password string
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator. ttl is the token lifetime.
func NewAuthenticator(secret, username, password string, ttl time.Duration) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: secret key is required")
	}
	if username == "" {
		return nil, fmt.Errorf("auth: username is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token lifetime must be positive")
	}
	return &Authenticator{
		secret:   []byte(secret),
		username: username,
		password: password,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// CheckCredentials compares in constant time.
func (a *Authenticator) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// Issue signs a token for username and returns it with its expiry.
func (a *Authenticator) Issue(username string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate verifies token and returns its subject.
func (a *Authenticator) Validate(token string) (string, error) {
	var claims jwt.RegisteredClaims
	key := func(*jwt.Token) (interface{}, error) { return a.secret, nil }
	_, err := jwt.ParseWithClaims(token, &claims, key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("token verification failed: %w", err)
	}
	if claims.Subject != a.username {
		return "", fmt.Errorf("token subject %q is not a known user", claims.Subject)
	}
	return claims.Subject, nil
}

// SetCookie writes the login cookie for token.
func (a *Authenticator) SetCookie(w http.ResponseWriter, token string, expires time.Time, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    token,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the login cookie.
func ClearCookie(w http.ResponseWriter, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookie,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// tokenFromRequest reads a Bearer token first, then the login cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(AuthCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireLogin lets requests with a valid token through and stores the user
// in the context. Browsers without one are redirected to loginURL.
func (a *Authenticator) RequireLogin(loginURL string) func(http.Handler) http.Handler {
	return a.require(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
	})
}

// RequireToken is RequireLogin for the JSON API: failures get 401 JSON.
func (a *Authenticator) RequireToken() func(http.Handler) http.Handler {
	return a.require(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized: provide a valid Bearer token or login cookie")
	})
}

func (a *Authenticator) require(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				deny(w, r)
				return
			}
			name, err := a.Validate(token)
			if err != nil {
				deny(w, r)
				return
			}
			ctx := domain.WithUser(r.Context(), domain.ContextUser{Name: name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
