package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jossiefancies/gatekeeper/internal/guard"
	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
)

// LoginRateLimit throttles the login endpoint per client IP. The check
// runs before the handler; the count happens after it, based on the
// response status, so any failed attempt (including malformed input)
// consumes budget while successful logins do not.
func LoginRateLimit(limiter *guard.RateLimiter, cfg guard.RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ClientIPFromContext(r)

			decision := limiter.Check(r.Context(), identity, cfg)
			if !decision.Allowed {
				logger.Warn("login rate limit exceeded",
					slog.String("ip", identity))
				writeRateLimited(w, r, decision)
				return
			}

			wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			if wrapped.Status() >= http.StatusBadRequest {
				limiter.RecordFailure(r.Context(), identity, cfg)
			}
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, decision guard.Decision) {
	if wantsJSON(r) {
		pkghttp.WriteRateLimited(w, "Too many login attempts. Try again later.", decision.RetryAfter)
		return
	}

	if decision.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
	}
	http.Error(w, "Too many login attempts. Try again later.", http.StatusTooManyRequests)
}
