package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jossiefancies/gatekeeper/internal/database"
	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/handlers"
	middlewareCustom "github.com/jossiefancies/gatekeeper/internal/middleware"
	"github.com/jossiefancies/gatekeeper/internal/routes"
	"github.com/jossiefancies/gatekeeper/internal/services"
	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
	pkglogger "github.com/jossiefancies/gatekeeper/pkg/logger"
)

// TestServer wraps httptest.Server with the database and guard components.
// The guard state lives in a MemoryStore so tests can advance its clock.
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB

	Store       *guard.MemoryStore
	Sessions    *guard.SessionManager
	CSRFManager *middlewareCustom.CSRFTokenManager
}

// NewTestServer initializes the full HTTP stack against a real database.
// allowedIPs configures the admin allow-list; nil means allow everyone.
func NewTestServer(db *database.DB, allowedIPs []string) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	store := guard.NewMemoryStore()

	rateLimiter := guard.NewRateLimiter(store, logger)
	rateLimitConfig := guard.DefaultLoginRateLimit()
	lockoutTracker := guard.NewLockoutTracker(store, guard.DefaultLockoutConfig(), logger)
	sessionManager := guard.NewSessionManager(store, guard.DefaultSessionConfig(), logger)
	allowList := guard.NewAllowList(allowedIPs, logger)
	csrfManager := middlewareCustom.NewCSRFTokenManager()

	adminUserRepo, loginAttemptRepo, auditLogRepo := InitializeRepositories(db)

	auditLogger := pkglogger.NewAuditLogger(logger)
	auditService := services.NewAuditService(auditLogRepo, auditLogger, logger)
	authService := services.NewAuthService(
		adminUserRepo,
		loginAttemptRepo,
		lockoutTracker,
		sessionManager,
		auditService,
		logger,
		24*time.Hour,
		"/admin/dashboard",
	)

	cookieConfig := middlewareCustom.CookieConfig{SameSite: "strict"}
	authHandler := handlers.NewAuthHandler(authService, csrfManager, cookieConfig)
	adminHandler := handlers.NewAdminHandler(auditService, loginAttemptRepo, db)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: nil}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.ClientIP(ipConfig))
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, adminHandler, auditService, routes.GuardComponents{
		RateLimiter: rateLimiter,
		RateLimit:   rateLimitConfig,
		Sessions:    sessionManager,
		AllowList:   allowList,
		CSRF:        csrfManager,
	}, logger)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:      server,
		DB:          db,
		Store:       store,
		Sessions:    sessionManager,
		CSRFManager: csrfManager,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server. State-changing requests
// get an anonymous CSRF token as both header and cookie (double-submit).
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if method != http.MethodGet && method != http.MethodHead {
		token, err := ts.CSRFManager.GenerateToken("")
		if err == nil && req.Header.Get("X-CSRF-Token") == "" {
			req.Header.Set("X-CSRF-Token", token)
			req.AddCookie(&http.Cookie{Name: middlewareCustom.CSRFCookieName, Value: token})
		}
	}

	return http.DefaultClient.Do(req)
}

// Login posts credentials and returns the response plus the session and CSRF
// cookies issued on success (nil when login failed)
func (ts *TestServer) Login(username, password string) (*http.Response, *http.Cookie, *http.Cookie, error) {
	resp, err := ts.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	var sessionCookie, csrfCookie *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case middlewareCustom.SessionCookieName:
			sessionCookie = c
		case middlewareCustom.CSRFCookieName:
			csrfCookie = c
		}
	}

	return resp, sessionCookie, csrfCookie, nil
}

// RequestWithSession makes an authenticated request using the session cookie
func (ts *TestServer) RequestWithSession(method, path string, body interface{}, session, csrf *http.Cookie) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(session)
	if csrf != nil {
		req.AddCookie(csrf)
		req.Header.Set("X-CSRF-Token", csrf.Value)
	}

	return http.DefaultClient.Do(req)
}

// ParseJSONResponse parses a JSON response body into target
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorMessage extracts the message field from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
