package services

import (
	"context"
	"log/slog"

	"github.com/jossiefancies/gatekeeper/internal/models"
	pkglogger "github.com/jossiefancies/gatekeeper/pkg/logger"
)

// AuditRepository is the subset of AuditLogRepository methods needed by AuditService.
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	List(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
	GetFailed(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// AuditService writes security events to both the structured log stream and
// the audit_logs table. The log stream is the operational view; the table is
// the queryable trail served to admins. A failed table write is logged and
// swallowed so auditing never takes down the request path.
type AuditService struct {
	repo        AuditRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditRepository, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// RecordAuthEvent records a login or logout attempt
func (s *AuditService) RecordAuthEvent(ctx context.Context, eventType, username, ip, userAgent string, success bool, failureReason string) {
	metadata := map[string]string{}
	if failureReason != "" {
		metadata["reason"] = failureReason
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		Username:      pkglogger.SanitizedUsername(username),
		IPAddress:     ip,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: failureReason,
	})

	entry := &models.AuditLog{
		EventType: eventType,
		Action:    eventType,
		Success:   success,
	}
	if username != "" {
		entry.ActorUsername = &username
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	if failureReason != "" {
		entry.FailureReason = &failureReason
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to persist audit log",
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
}

// RecordSecurityEvent records lockouts, blocked IPs, and session expiries
func (s *AuditService) RecordSecurityEvent(ctx context.Context, eventType, username, ip string, metadata models.AuditMetadata) {
	stringMeta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if str, ok := v.(string); ok {
			stringMeta[k] = str
		}
	}
	s.auditLogger.LogSecurityEvent(eventType, pkglogger.SanitizedUsername(username), ip, stringMeta)

	entry := &models.AuditLog{
		EventType: eventType,
		Action:    eventType,
		Success:   false,
		Metadata:  metadata,
	}
	if username != "" {
		entry.ActorUsername = &username
	}
	if ip != "" {
		entry.IPAddress = &ip
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to persist audit log",
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
}

// RecordAdminAccess logs an authenticated admin request, returning a
// completion callback that stamps the outcome and duration.
func (s *AuditService) RecordAdminAccess(ctx context.Context, action, username, ip string) func(success bool) {
	finish := s.auditLogger.LogActionStart(action, pkglogger.SanitizedUsername(username), ip)

	return func(success bool) {
		finish(success)

		entry := &models.AuditLog{
			EventType:     models.AuditEventTypeAdminAccess,
			ActorUsername: &username,
			Action:        action,
			Success:       success,
			IPAddress:     &ip,
		}
		if _, err := s.repo.Create(ctx, entry); err != nil {
			s.logger.Error("failed to persist audit log",
				slog.String("event_type", models.AuditEventTypeAdminAccess),
				slog.Any("error", err))
		}
	}
}

// List returns audit entries for the monitoring endpoint
func (s *AuditService) List(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	return s.repo.List(ctx, eventType, limit, offset)
}

// ListFailed returns failed events only
func (s *AuditService) ListFailed(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return s.repo.GetFailed(ctx, limit, offset)
}

// Cleanup removes audit entries past retention
func (s *AuditService) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	return s.repo.Cleanup(ctx, olderThanDays)
}
