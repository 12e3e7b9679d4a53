package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/handlers"
	"github.com/jossiefancies/gatekeeper/internal/middleware"
	"github.com/jossiefancies/gatekeeper/internal/services"
)

// GuardComponents bundles the access policy pieces the routes depend on.
type GuardComponents struct {
	RateLimiter *guard.RateLimiter
	RateLimit   guard.RateLimitConfig
	Sessions    *guard.SessionManager
	AllowList   *guard.AllowList
	CSRF        *middleware.CSRFTokenManager
}

// RegisterRoutes wires the admin access pipeline. Middleware order on
// protected routes is load-bearing:
//
//	coarse rate limit -> CSRF -> IP allow-list -> session auth -> audit
//
// and on login:
//
//	coarse rate limit -> CSRF -> login rate limit -> IP allow-list -> handler
//
// The login rate limiter counts by response status, so it must wrap
// everything that can reject the attempt, including the allow-list.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	auditService *services.AuditService,
	g GuardComponents,
	logger *slog.Logger,
) {
	coarse := middleware.RateLimitByIP(middleware.DefaultAdminRateLimit())

	// Login: open to unauthenticated clients, throttled per IP
	router.Group(func(r chi.Router) {
		r.Use(coarse)
		r.Use(middleware.CSRFProtection(g.CSRF, logger))
		r.Use(middleware.LoginRateLimit(g.RateLimiter, g.RateLimit, logger))
		r.Use(middleware.IPAllowList(g.AllowList, logger))

		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/admin/login", authHandler.Login)
	})

	// CSRF token for the login form; no session required
	router.With(coarse).Get("/api/auth/csrf", authHandler.CSRFToken)

	// Protected admin surface
	router.Group(func(r chi.Router) {
		r.Use(coarse)
		r.Use(middleware.IPAllowList(g.AllowList, logger))
		r.Use(middleware.SessionAuth(g.Sessions, logger))
		r.Use(middleware.CSRFProtection(g.CSRF, logger))
		r.Use(middleware.AdminAudit(auditService))

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/session", authHandler.Session)

		r.Get("/admin/dashboard", adminHandler.Dashboard)
		r.Get("/admin/audit-logs", adminHandler.ListAuditLogs)
		r.Get("/admin/login-attempts", adminHandler.ListLoginAttempts)
	})
}
