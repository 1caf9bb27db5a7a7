package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const clientIdleTTL = 10 * time.Minute

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed at once.
	Burst int
}

// RateLimiter enforces a per-client token bucket. Over-limit requests get
// 429 with a Retry-After header. Idle client buckets expire after ten minutes.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	clients := cache.New(clientIdleTTL, clientIdleTTL/2)

	limiterFor := func(ip string) *rate.Limiter {
		if v, ok := clients.Get(ip); ok {
			l := v.(*rate.Limiter)
			clients.SetDefault(ip, l)
			return l
		}
		l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		// Two concurrent first requests may both create a bucket; Add keeps
		// the first one.
		if err := clients.Add(ip, l, cache.DefaultExpiration); err != nil {
			if v, ok := clients.Get(ip); ok {
				return v.(*rate.Limiter)
			}
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := limiterFor(clientIP(r))

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeTooManyRequests(w, 0)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				writeTooManyRequests(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the host part of RemoteAddr. X-Forwarded-For is ignored so the
// limit cannot be dodged by spoofing the header.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
	})
}
