package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// csrfTokenEntry stores token metadata
type csrfTokenEntry struct {
	sessionID string
	expiry    time.Time
}

// CSRFTokenManager handles CSRF token generation and validation. Tokens
// issued to an authenticated session are bound to it; anonymous tokens
// (for the login form) validate via the double-submit cookie pattern.
type CSRFTokenManager struct {
	validTokens map[string]*csrfTokenEntry
	mu          sync.RWMutex
	tokenTTL    time.Duration
}

// NewCSRFTokenManager creates a new CSRF token manager
func NewCSRFTokenManager() *CSRFTokenManager {
	manager := &CSRFTokenManager{
		validTokens: make(map[string]*csrfTokenEntry),
		tokenTTL:    15 * time.Minute,
	}

	go manager.cleanupExpiredTokens()

	return manager
}

// GenerateToken creates a new CSRF token bound to a session ID. An empty
// session ID issues an anonymous token.
func (m *CSRFTokenManager) GenerateToken(sessionID string) (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	token := hex.EncodeToString(randomBytes)

	m.mu.Lock()
	m.validTokens[token] = &csrfTokenEntry{
		sessionID: sessionID,
		expiry:    time.Now().Add(m.tokenTTL),
	}
	m.mu.Unlock()

	return token, nil
}

// ValidateToken checks that a CSRF token exists, has not expired, and is
// bound to the given session
func (m *CSRFTokenManager) ValidateToken(token, sessionID string) bool {
	m.mu.RLock()
	entry, exists := m.validTokens[token]
	m.mu.RUnlock()

	if !exists {
		return false
	}

	if entry.sessionID != sessionID {
		return false
	}

	if time.Now().After(entry.expiry) {
		m.mu.Lock()
		delete(m.validTokens, token)
		m.mu.Unlock()
		return false
	}

	return true
}

// RevokeToken invalidates a CSRF token
func (m *CSRFTokenManager) RevokeToken(token string) {
	m.mu.Lock()
	delete(m.validTokens, token)
	m.mu.Unlock()
}

func (m *CSRFTokenManager) cleanupExpiredTokens() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for token, entry := range m.validTokens {
			if now.After(entry.expiry) {
				delete(m.validTokens, token)
			}
		}
		m.mu.Unlock()
	}
}

// CSRFProtection validates CSRF tokens on state-changing requests.
// Authenticated requests validate against the session-bound token set;
// anonymous requests (the login form) use double-submit cookie validation.
func CSRFProtection(csrfManager *CSRFTokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			session := GetSessionFromContext(r)

			csrfToken := r.Header.Get("X-CSRF-Token")
			if csrfToken == "" {
				if cookie, err := r.Cookie(CSRFCookieName); err == nil {
					csrfToken = cookie.Value
				}
			}

			if csrfToken == "" {
				logger.Warn("CSRF token missing in request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if session != nil {
				if !csrfManager.ValidateToken(csrfToken, session.ID) {
					logger.Warn("CSRF token validation failed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path))
					http.Error(w, "CSRF token invalid", http.StatusForbidden)
					return
				}
			} else {
				csrfCookie, err := r.Cookie(CSRFCookieName)
				if err != nil || csrfCookie.Value != csrfToken {
					logger.Warn("CSRF token validation failed for anonymous request",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path))
					http.Error(w, "CSRF token invalid", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
