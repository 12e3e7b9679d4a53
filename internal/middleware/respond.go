package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// LoginPath is where browser clients are sent when a request is rejected
// for a missing or expired session.
const LoginPath = "/admin/login"

// wantsJSON reports whether the client should receive a JSON rejection
// instead of a redirect. API callers either send a JSON body or hit the
// /api/ tree; everything else is treated as a browser.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// unauthenticatedResponse carries the login location so API clients can
// drive the same flow a browser redirect would.
type unauthenticatedResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
}

// rejectUnauthenticated answers a request with no valid session: JSON 401
// for API clients, 302 to the login page for browsers.
func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(unauthenticatedResponse{
			Error:       "unauthorized",
			Message:     message,
			RedirectURL: LoginPath,
		})
		return
	}

	http.Redirect(w, r, LoginPath, http.StatusFound)
}
