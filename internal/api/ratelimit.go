package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/estately/estately-server/internal/http/response"
	"github.com/estately/estately-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter creates a limiter allowing ratePerInterval requests per
// interval with the given burst. A non-positive rate disables limiting.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	if ratePerInterval <= 0 {
		return nil
	}
	return ratelimit.PerInterval(ratePerInterval, interval, max(burst, 1))
}

// authRateLimitedPath selects the credential endpoints: every POST under
// /api/v1/auth/.
func authRateLimitedPath(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/v1/auth/")
}

// RateLimitMiddleware rate limits matching requests by client IP and
// answers 429 when the limit is exceeded. A nil limiter passes everything.
func RateLimitMiddleware(limiter *RateLimiter, match func(*http.Request) bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !match(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the caller's address without the port. middleware.RealIP
// has already folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
