package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFProtection_GETPassesThrough(t *testing.T) {
	mw := CSRFProtection(NewCSRFTokenManager(), testLogger())
	handler := mw(okHandler())

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFProtection_MissingToken(t *testing.T) {
	mw := CSRFProtection(NewCSRFTokenManager(), testLogger())
	handler := mw(okHandler())

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFProtection_DoubleSubmit_Anonymous(t *testing.T) {
	mw := CSRFProtection(NewCSRFTokenManager(), testLogger())
	handler := mw(okHandler())

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{}`))
	req.Header.Set("X-CSRF-Token", "abc123")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc123"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFProtection_DoubleSubmit_Mismatch(t *testing.T) {
	mw := CSRFProtection(NewCSRFTokenManager(), testLogger())
	handler := mw(okHandler())

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{}`))
	req.Header.Set("X-CSRF-Token", "abc123")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "different"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFProtection_SessionBoundToken(t *testing.T) {
	manager := NewCSRFTokenManager()
	token, err := manager.GenerateToken("session-1")
	require.NoError(t, err)

	mw := CSRFProtection(manager, testLogger())
	handler := mw(okHandler())

	session := &guard.Session{ID: "session-1", Username: "admin"}

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req = req.WithContext(context.WithValue(req.Context(), sessionKey, session))
	req.Header.Set("X-CSRF-Token", token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRFProtection_TokenBoundToOtherSession(t *testing.T) {
	manager := NewCSRFTokenManager()
	token, err := manager.GenerateToken("session-1")
	require.NoError(t, err)

	mw := CSRFProtection(manager, testLogger())
	handler := mw(okHandler())

	session := &guard.Session{ID: "session-2", Username: "admin"}

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req = req.WithContext(context.WithValue(req.Context(), sessionKey, session))
	req.Header.Set("X-CSRF-Token", token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRFTokenManager_Revoke(t *testing.T) {
	manager := NewCSRFTokenManager()
	token, err := manager.GenerateToken("session-1")
	require.NoError(t, err)

	assert.True(t, manager.ValidateToken(token, "session-1"))
	manager.RevokeToken(token)
	assert.False(t, manager.ValidateToken(token, "session-1"))
}
