package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/jossiefancies/gatekeeper/internal/background"
	"github.com/jossiefancies/gatekeeper/internal/config"
	"github.com/jossiefancies/gatekeeper/internal/database"
	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/handlers"
	middlewareCustom "github.com/jossiefancies/gatekeeper/internal/middleware"
	"github.com/jossiefancies/gatekeeper/internal/models"
	"github.com/jossiefancies/gatekeeper/internal/repositories"
	"github.com/jossiefancies/gatekeeper/internal/routes"
	"github.com/jossiefancies/gatekeeper/internal/services"
	pkgauth "github.com/jossiefancies/gatekeeper/pkg/auth"
	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
	pkglogger "github.com/jossiefancies/gatekeeper/pkg/logger"
)

func main() {
	// Load configuration first so the log level is honored from the start
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize redis-backed guard store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	pingCancel()

	store := guard.NewRedisStore(redisClient)

	// Initialize repositories
	adminUserRepo := repositories.NewAdminUserRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	auditLogRepo := repositories.NewAuditLogRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(
		loginAttemptRepo,
		auditLogRepo,
		logger,
		cfg.Guard.CleanupInterval,
		cfg.Guard.AuditRetention,
	)

	// Guard components
	rateLimiter := guard.NewRateLimiter(store, logger)
	rateLimitConfig := guard.RateLimitConfig{
		MaxAttempts:   cfg.Guard.LoginMaxAttempts,
		Window:        cfg.Guard.LoginWindow,
		BlockDuration: cfg.Guard.LoginBlockDuration,
	}

	lockoutTracker := guard.NewLockoutTracker(store, guard.LockoutConfig{
		Threshold:          cfg.Guard.LockoutThreshold,
		LockDuration:       cfg.Guard.LockDuration,
		UsernameWindow:     cfg.Guard.UsernameWindow,
		IPWindow:           cfg.Guard.IPWindow,
		MaxUsernameEntries: cfg.Guard.MaxUsernameFails,
		MaxIPEntries:       cfg.Guard.MaxIPFails,
	}, logger)

	sessionManager := guard.NewSessionManager(store, guard.SessionConfig{
		AbsoluteTTL: cfg.Guard.SessionAbsoluteTTL,
		IdleTimeout: cfg.Guard.SessionIdleTimeout,
	}, logger)

	allowList := guard.NewAllowList(cfg.Guard.AllowedIPs, logger)

	// CSRF token manager
	csrfManager := middlewareCustom.NewCSRFTokenManager()

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	auditService := services.NewAuditService(auditLogRepo, auditLogger, logger)
	authService := services.NewAuthService(
		adminUserRepo,
		loginAttemptRepo,
		lockoutTracker,
		sessionManager,
		auditService,
		logger,
		cfg.Guard.AttemptRetention,
		"/admin/dashboard",
	)

	// Initialize handlers
	cookieConfig := middlewareCustom.CookieConfig{
		Secure:   cfg.Server.Env == "production",
		SameSite: "strict",
	}
	authHandler := handlers.NewAuthHandler(authService, csrfManager, cookieConfig)
	adminHandler := handlers.NewAdminHandler(auditService, loginAttemptRepo, db)

	// Bootstrap first admin account if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, adminUserRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Setup router
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middlewareCustom.ClientIP(ipConfig))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, adminHandler, auditService, routes.GuardComponents{
		RateLimiter: rateLimiter,
		RateLimit:   rateLimitConfig,
		Sessions:    sessionManager,
		AllowList:   allowList,
		CSRF:        csrfManager,
	}, logger)

	// Health check with database and redis
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus, redisStatus := "up", "up"
		if err := db.HealthCheck(ctx); err != nil {
			dbStatus = "down"
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}

		w.Header().Set("Content-Type", "application/json")
		if dbStatus == "down" || redisStatus == "down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","database":%q,"redis":%q}`, dbStatus, redisStatus)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","database":%q,"redis":%q}`, dbStatus, redisStatus)
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the first admin account if ADMIN_USERNAME and
// ADMIN_PASSWORD are set. Safe to run on every startup.
func ensureAdminUser(ctx context.Context, repo *repositories.AdminUserRepository, logger *slog.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")

	if username == "" || password == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin bootstrap")
		return nil
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("admin password rejected: %w", err)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.AdminUser{
		Username:     username,
		Email:        os.Getenv("ADMIN_EMAIL"),
		PasswordHash: hash,
		IsSuperuser:  true,
		IsActive:     true,
	}

	created, err := repo.CreateIfAbsent(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if created {
		logger.Info("admin user created", slog.String("username", pkglogger.SanitizedUsername(username)))
	} else {
		logger.Info("admin user already exists")
	}
	return nil
}
