package middleware

import (
	"log/slog"
	"net/http"

	"github.com/jossiefancies/gatekeeper/internal/guard"
	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
)

// IPAllowList gates admin routes behind a configured address list. An
// empty list admits everyone; a populated one rejects any client whose
// address does not match an entry or CIDR range.
func IPAllowList(allowList *guard.AllowList, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowList.Empty() {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIPFromContext(r)
			if !allowList.Allowed(ip) {
				logger.Warn("admin request from disallowed address",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path))
				writeIPRejected(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeIPRejected(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		pkghttp.WriteForbidden(w, "Access denied")
		return
	}
	http.Error(w, "Access denied", http.StatusForbidden)
}
