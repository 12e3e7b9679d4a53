package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/middleware"
	"github.com/jossiefancies/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAuthService is a func-field mock for AuthServiceInterface
type mockAuthService struct {
	LoginFunc  func(ctx context.Context, username, password, ipAddress, userAgent string) *models.LoginResult
	LogoutFunc func(ctx context.Context, sessionID, username, ipAddress, userAgent string) error
}

func (m *mockAuthService) Login(ctx context.Context, username, password, ipAddress, userAgent string) *models.LoginResult {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password, ipAddress, userAgent)
	}
	return &models.LoginResult{Outcome: models.OutcomeError}
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID, username, ipAddress, userAgent string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID, username, ipAddress, userAgent)
	}
	return nil
}

func newAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, middleware.NewCSRFTokenManager(), middleware.CookieConfig{SameSite: "strict"})
}

func jsonLoginRequest(body string) *http.Request {
	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:54321"
	return req
}

func TestAuthHandler_Login_Success_JSON(t *testing.T) {
	service := &mockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ip, ua string) *models.LoginResult {
			assert.Equal(t, "admin", username)
			return &models.LoginResult{
				Outcome:     models.OutcomeSuccess,
				RedirectURL: "/admin/dashboard",
				SessionID:   "session-1",
				User:        &models.AdminUser{Username: "admin"},
			}
		},
	}
	handler := newAuthHandler(service)

	w := httptest.NewRecorder()
	handler.Login(w, jsonLoginRequest(`{"username":"admin","password":"SecureP@ss123"}`))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/admin/dashboard", resp.RedirectURL)
	assert.Equal(t, "admin", resp.Username)

	cookies := w.Result().Cookies()
	var sessionCookie, csrfCookie *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case middleware.SessionCookieName:
			sessionCookie = c
		case middleware.CSRFCookieName:
			csrfCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.Equal(t, "session-1", sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)
	require.NotNil(t, csrfCookie)
	assert.False(t, csrfCookie.HttpOnly)
}

func TestAuthHandler_Login_Success_Form_Redirects(t *testing.T) {
	service := &mockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ip, ua string) *models.LoginResult {
			return &models.LoginResult{
				Outcome:     models.OutcomeSuccess,
				RedirectURL: "/admin/dashboard",
				SessionID:   "session-1",
				User:        &models.AdminUser{Username: "admin"},
			}
		},
	}
	handler := newAuthHandler(service)

	form := url.Values{"username": {"admin"}, "password": {"SecureP@ss123"}}
	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	handler.Login(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))
}

func TestAuthHandler_Login_OutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		outcome models.LoginOutcome
		status  int
	}{
		{models.OutcomeInvalidInput, http.StatusBadRequest},
		{models.OutcomeInvalidCredentials, http.StatusUnauthorized},
		{models.OutcomeLocked, http.StatusLocked},
		{models.OutcomeError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			service := &mockAuthService{
				LoginFunc: func(ctx context.Context, username, password, ip, ua string) *models.LoginResult {
					return &models.LoginResult{Outcome: tt.outcome}
				},
			}
			handler := newAuthHandler(service)

			w := httptest.NewRecorder()
			handler.Login(w, jsonLoginRequest(`{"username":"admin","password":"whatever1!"}`))

			assert.Equal(t, tt.status, w.Code)

			// No session cookie on any failure
			for _, c := range w.Result().Cookies() {
				assert.NotEqual(t, middleware.SessionCookieName, c.Name)
			}
		})
	}
}

func TestAuthHandler_Login_MalformedJSON(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	handler.Login(w, jsonLoginRequest(`{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	called := false
	service := &mockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ip, ua string) *models.LoginResult {
			called = true
			return &models.LoginResult{Outcome: models.OutcomeSuccess}
		},
	}
	handler := newAuthHandler(service)

	w := httptest.NewRecorder()
	handler.Login(w, jsonLoginRequest(`{"username":"admin"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called, "validation failures must not reach the service")
}

func TestAuthHandler_Logout(t *testing.T) {
	destroyed := ""
	service := &mockAuthService{
		LogoutFunc: func(ctx context.Context, sessionID, username, ip, ua string) error {
			destroyed = sessionID
			return nil
		},
	}
	handler := newAuthHandler(service)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	session := &guard.Session{ID: "session-1", Username: "admin"}
	req = withSession(req, session)
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session-1", destroyed)

	// Session cookie must be cleared
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "logout must clear the session cookie")
}

func TestAuthHandler_Logout_NoSession(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{})

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Session(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{})

	req := httptest.NewRequest("GET", "/api/auth/session", nil)
	req = withSession(req, &guard.Session{ID: "session-1", Username: "admin", LoginIP: "203.0.113.10"})
	w := httptest.NewRecorder()

	handler.Session(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin", resp.Username)
	assert.Equal(t, "203.0.113.10", resp.LoginIP)
}

func TestAuthHandler_CSRFToken(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{})

	req := httptest.NewRequest("GET", "/api/auth/csrf", nil)
	w := httptest.NewRecorder()

	handler.CSRFToken(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["csrf_token"])

	var cookieSet bool
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.CSRFCookieName && c.Value == resp["csrf_token"] {
			cookieSet = true
		}
	}
	assert.True(t, cookieSet, "token must also be set as a cookie for double-submit")
}
