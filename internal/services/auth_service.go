package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/models"
	pkgauth "github.com/jossiefancies/gatekeeper/pkg/auth"
)

// AdminUserRepository is the account lookup surface needed by AuthService.
type AdminUserRepository interface {
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	UpdateLastLogin(ctx context.Context, userID, ipAddress string) error
}

// AttemptRecorder persists login attempt rows for the monitoring endpoints.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// LockoutTracker is the per-account failure ledger.
type LockoutTracker interface {
	IsLocked(ctx context.Context, username string) bool
	RecordFailure(ctx context.Context, ip, username string)
	Clear(ctx context.Context, ip, username string) error
}

// SessionManager issues and revokes admin sessions.
type SessionManager interface {
	Create(ctx context.Context, username, loginIP string) (*guard.Session, error)
	Destroy(ctx context.Context, sessionID string) error
}

// AuditRecorder is the subset of AuditService used on the login path.
type AuditRecorder interface {
	RecordAuthEvent(ctx context.Context, eventType, username, ip, userAgent string, success bool, failureReason string)
	RecordSecurityEvent(ctx context.Context, eventType, username, ip string, metadata models.AuditMetadata)
}

// dummyHash is compared against when the account does not exist, so the
// response time does not reveal whether a username is registered.
const dummyHash = "$2a$14$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

const (
	maxUsernameLen = 150
	maxPasswordLen = 128
)

// AuthService runs the admin login pipeline. Request throttling happens in
// middleware before this service is reached; the service owns credential
// verification, the account lockout ledger, and session issuance.
type AuthService struct {
	users            AdminUserRepository
	attempts         AttemptRecorder
	lockouts         LockoutTracker
	sessions         SessionManager
	audit            AuditRecorder
	logger           *slog.Logger
	attemptRetention time.Duration
	successRedirect  string
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users AdminUserRepository,
	attempts AttemptRecorder,
	lockouts LockoutTracker,
	sessions SessionManager,
	audit AuditRecorder,
	logger *slog.Logger,
	attemptRetention time.Duration,
	successRedirect string,
) *AuthService {
	return &AuthService{
		users:            users,
		attempts:         attempts,
		lockouts:         lockouts,
		sessions:         sessions,
		audit:            audit,
		logger:           logger,
		attemptRetention: attemptRetention,
		successRedirect:  successRedirect,
	}
}

// Login authenticates an admin account. Every terminal outcome is recorded
// as an attempt row; outcomes that count as credential failures also feed
// the lockout ledger.
func (s *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) *models.LoginResult {
	username = strings.TrimSpace(username)

	if username == "" || password == "" ||
		len(username) > maxUsernameLen || len(password) > maxPasswordLen {
		s.logger.Info("login rejected: invalid input")
		s.recordOutcome(ctx, username, ip, userAgent, models.OutcomeInvalidInput)
		return &models.LoginResult{Outcome: models.OutcomeInvalidInput}
	}

	// Lockout check comes before credential verification so a locked
	// account rejects even the correct password.
	if s.lockouts.IsLocked(ctx, username) {
		s.logger.Warn("login rejected: account locked",
			slog.String("ip", ip))
		s.audit.RecordSecurityEvent(ctx, models.AuditEventTypeLockout, username, ip, models.AuditMetadata{
			"stage": "pre_auth",
		})
		s.recordOutcome(ctx, username, ip, userAgent, models.OutcomeLocked)
		return &models.LoginResult{Outcome: models.OutcomeLocked}
	}

	user, outcome := s.verifyCredentials(ctx, username, password)

	if outcome != models.OutcomeSuccess {
		if outcome.CountsAsFailure() {
			s.lockouts.RecordFailure(ctx, ip, username)
			if s.lockouts.IsLocked(ctx, username) {
				s.audit.RecordSecurityEvent(ctx, models.AuditEventTypeLockout, username, ip, models.AuditMetadata{
					"stage": "threshold_reached",
				})
			}
		}
		s.audit.RecordAuthEvent(ctx, models.AuditEventTypeLogin, username, ip, userAgent, false, outcome.String())
		s.recordOutcome(ctx, username, ip, userAgent, outcome)
		return &models.LoginResult{Outcome: outcome}
	}

	// Success path. Clearing the ledger is best-effort; a clear failure
	// must not block a valid login.
	if err := s.lockouts.Clear(ctx, ip, username); err != nil {
		s.logger.Error("failed to clear lockout state", slog.Any("error", err))
	}

	session, err := s.sessions.Create(ctx, username, ip)
	if err != nil {
		s.logger.Error("failed to create session", slog.Any("error", err))
		s.recordOutcome(ctx, username, ip, userAgent, models.OutcomeError)
		return &models.LoginResult{Outcome: models.OutcomeError}
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, ip); err != nil {
		// Non-fatal: the login stands even if the stamp fails
		s.logger.Error("failed to update last login", slog.Any("error", err))
	}

	s.audit.RecordAuthEvent(ctx, models.AuditEventTypeLogin, username, ip, userAgent, true, "")
	s.recordOutcome(ctx, username, ip, userAgent, models.OutcomeSuccess)
	s.logger.Info("admin logged in", slog.String("ip", ip))

	return &models.LoginResult{
		Outcome:     models.OutcomeSuccess,
		RedirectURL: s.successRedirect,
		SessionID:   session.ID,
		User:        user,
	}
}

// verifyCredentials resolves the account and checks the password. The
// bcrypt comparison runs on every path, including unknown usernames.
func (s *AuthService) verifyCredentials(ctx context.Context, username, password string) (*models.AdminUser, models.LoginOutcome) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = pkgauth.ComparePassword(dummyHash, password)
			s.logger.Info("login failed: invalid credentials")
			return nil, models.OutcomeInvalidCredentials
		}
		s.logger.Error("failed to look up admin user", slog.Any("error", err))
		return nil, models.OutcomeError
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		return nil, models.OutcomeInvalidCredentials
	}

	if !user.CanLogin() {
		// Correct password on a disabled or non-superuser account still
		// reads as bad credentials to the caller.
		s.logger.Warn("login rejected: account not eligible")
		return nil, models.OutcomeInvalidCredentials
	}

	return user, models.OutcomeSuccess
}

// Logout destroys the session and records the event
func (s *AuthService) Logout(ctx context.Context, sessionID, username, ip, userAgent string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		s.logger.Error("failed to destroy session", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.RecordAuthEvent(ctx, models.AuditEventTypeLogout, username, ip, userAgent, true, "")
	return nil
}

func (s *AuthService) recordOutcome(ctx context.Context, username, ip, userAgent string, outcome models.LoginOutcome) {
	attempt := &models.LoginAttempt{
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   outcome == models.OutcomeSuccess,
		ExpiresAt: time.Now().Add(s.attemptRetention),
	}
	if outcome != models.OutcomeSuccess {
		reason := outcome.String()
		attempt.FailureReason = &reason
	}

	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}
}
