package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jossiefancies/gatekeeper/internal/middleware"
	"github.com/jossiefancies/gatekeeper/internal/models"
	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
)

// AuthServiceInterface defines the interface for the login pipeline
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, ipAddress, userAgent string) *models.LoginResult
	Logout(ctx context.Context, sessionID, username, ipAddress, userAgent string) error
}

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	csrfManager  *middleware.CSRFTokenManager
	cookieConfig middleware.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, csrfManager *middleware.CSRFTokenManager, cookieConfig middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		csrfManager:  csrfManager,
		cookieConfig: cookieConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse is returned to API clients on success
type LoginResponse struct {
	RedirectURL string `json:"redirect_url"`
	Username    string `json:"username"`
}

// Login handles an admin login attempt. Accepts a JSON body from API
// clients or form fields from the browser login page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLoginRequest(w, r)
	if !ok {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ip := middleware.ClientIPFromContext(r)
	userAgent := r.UserAgent()

	result := h.service.Login(r.Context(), req.Username, req.Password, ip, userAgent)

	switch result.Outcome {
	case models.OutcomeSuccess:
		h.writeLoginSuccess(w, r, result)
	case models.OutcomeInvalidInput:
		pkghttp.WriteBadRequest(w, "Invalid username or password format")
	case models.OutcomeInvalidCredentials:
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case models.OutcomeLocked:
		pkghttp.WriteLocked(w, "Account is temporarily locked. Try again later.")
	default:
		pkghttp.WriteInternalError(w, "Login failed")
	}
}

func (h *AuthHandler) decodeLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid request body")
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid form data")
		return req, false
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	return req, true
}

func (h *AuthHandler) writeLoginSuccess(w http.ResponseWriter, r *http.Request, result *models.LoginResult) {
	middleware.SetSessionCookie(w, result.SessionID, h.cookieConfig)

	// Rotate the CSRF token to one bound to the new session
	if token, err := h.csrfManager.GenerateToken(result.SessionID); err == nil {
		middleware.SetCSRFCookie(w, token, h.cookieConfig)
	}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(LoginResponse{
			RedirectURL: result.RedirectURL,
			Username:    result.User.Username,
		})
		return
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// Logout destroys the current session and clears cookies
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	ip := middleware.ClientIPFromContext(r)
	if err := h.service.Logout(r.Context(), session.ID, session.Username, ip, r.UserAgent()); err != nil {
		pkghttp.WriteInternalError(w, "Logout failed")
		return
	}

	middleware.ClearSessionCookie(w, h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}

// SessionResponse describes the authenticated session
type SessionResponse struct {
	Username     string `json:"username"`
	LoginIP      string `json:"login_ip"`
	StartedAt    string `json:"started_at"`
	LastActivity string `json:"last_activity"`
}

// Session returns the current session state. Reaching this handler at all
// means the session survived validation, so it only reports.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(SessionResponse{
		Username:     session.Username,
		LoginIP:      session.LoginIP,
		StartedAt:    session.StartedAt.UTC().Format(time.RFC3339),
		LastActivity: session.LastActivity.UTC().Format(time.RFC3339),
	})
}

// CSRFToken issues an anonymous CSRF token for the login form
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.GenerateToken("")
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to generate token")
		return
	}

	middleware.SetCSRFCookie(w, token, h.cookieConfig)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": token})
}
