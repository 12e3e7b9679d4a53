package handlers

import (
	"net/http"

	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/middleware"
)

// withSession attaches an authenticated session to a test request
func withSession(r *http.Request, session *guard.Session) *http.Request {
	return r.WithContext(middleware.WithSession(r.Context(), session))
}
