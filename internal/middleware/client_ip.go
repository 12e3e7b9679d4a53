package middleware

import (
	"context"
	"net/http"

	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// ClientIP resolves the client address once per request, honoring
// forwarding headers only from trusted proxies, and stores it in the
// request context for the rest of the pipeline.
func ClientIP(config *pkghttp.IPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := pkghttp.ExtractClientIP(r, config)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromContext returns the resolved client IP, or the raw socket
// address when the resolver middleware did not run.
func ClientIPFromContext(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok {
		return ip
	}
	return pkghttp.ExtractClientIP(r, nil)
}
