package middleware

import (
	"context"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AccessAuditor records authenticated admin requests with their outcome.
type AccessAuditor interface {
	RecordAdminAccess(ctx context.Context, action, username, ip string) func(success bool)
}

// AdminAudit writes an audit record for every authenticated admin request.
// It must run after SessionAuth so the actor is known.
func AdminAudit(auditor AccessAuditor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSessionFromContext(r)
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			action := r.Method + " " + r.URL.Path
			finish := auditor.RecordAdminAccess(r.Context(), action, session.Username, ClientIPFromContext(r))

			wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			finish(wrapped.Status() < http.StatusBadRequest)
		})
	}
}
