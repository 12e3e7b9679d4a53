package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jossiefancies/gatekeeper/internal/guard"
)

const sessionKey contextKey = "admin_session"

// SessionValidator checks a session ID and refreshes its activity stamp.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (*guard.Session, error)
}

// SessionAuth requires a valid admin session for every request it guards.
// Missing, expired, and idle-timed-out sessions are all rejected the same
// way so the response does not reveal which ceiling was hit.
func SessionAuth(sessions SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Admin responses must never land in shared caches
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")

			sessionID, err := GetSessionCookie(r)
			if err != nil || sessionID == "" {
				rejectUnauthenticated(w, r, "authentication required")
				return
			}

			session, err := sessions.Validate(r.Context(), sessionID)
			if err != nil {
				logger.Info("session rejected",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				rejectUnauthenticated(w, r, "session expired")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession returns a context carrying an authenticated session
func WithSession(ctx context.Context, session *guard.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSessionFromContext returns the authenticated session, or nil when the
// request did not pass through SessionAuth.
func GetSessionFromContext(r *http.Request) *guard.Session {
	if session, ok := r.Context().Value(sessionKey).(*guard.Session); ok {
		return session
	}
	return nil
}
