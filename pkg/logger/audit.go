package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is a security-relevant event destined for the audit trail.
type AuditEvent struct {
	EventType     string
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger emits structured audit records through slog.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs a login or logout event. Failures are logged at
// Warn so they surface in alerting without a separate pipeline.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Username != "" {
		attrs = append(attrs, slog.String("username", event.Username))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

// LogActionStart records the beginning of an admin action and returns a
// function that records its completion with the elapsed duration.
func (al *AuditLogger) LogActionStart(action, username, ipAddress string) func(success bool) {
	start := time.Now()

	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("audit_type", "admin"),
		slog.String("event_type", "action_start"),
		slog.String("action", action),
		slog.String("username", username),
		slog.String("ip_address", ipAddress),
	)

	return func(success bool) {
		level := slog.LevelInfo
		if !success {
			level = slog.LevelWarn
		}
		al.logger.LogAttrs(context.Background(), level, "audit",
			slog.String("audit_type", "admin"),
			slog.String("event_type", "action_end"),
			slog.String("action", action),
			slog.String("username", username),
			slog.String("ip_address", ipAddress),
			slog.Bool("success", success),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// LogSecurityEvent logs lockouts, session expiries, and blocked requests.
func (al *AuditLogger) LogSecurityEvent(eventType, username, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if username != "" {
		attrs = append(attrs, slog.String("username", username))
	}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
}
