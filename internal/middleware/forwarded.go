package middleware

import "net/http"

// RequireForwardedBy rejects requests whose X-Forwarded-By header is not
// want with 403. It is meant for deployments that must only be reached
// through a CDN which stamps that header.
func RequireForwardedBy(want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Forwarded-By") != want {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
