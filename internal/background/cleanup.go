package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/jossiefancies/gatekeeper/internal/repositories"
)

// CleanupManager periodically removes expired login attempts and audit
// records past retention from the database
type CleanupManager struct {
	attempts       *repositories.LoginAttemptRepository
	audit          *repositories.AuditLogRepository
	logger         *slog.Logger
	interval       time.Duration
	auditRetention time.Duration
	stopCh         chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attempts *repositories.LoginAttemptRepository,
	audit *repositories.AuditLogRepository,
	logger *slog.Logger,
	interval time.Duration,
	auditRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attempts:       attempts,
		audit:          audit,
		logger:         logger,
		interval:       interval,
		auditRetention: auditRetention,
		stopCh:         make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	attemptsDeleted, err := cm.attempts.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired login attempts", slog.Any("error", err))
	} else if attemptsDeleted > 0 {
		cm.logger.Info("expired login attempt cleanup completed",
			slog.Int64("rows_deleted", attemptsDeleted))
	}

	retentionDays := int(cm.auditRetention.Hours() / 24)
	auditDeleted, err := cm.audit.Cleanup(cleanupCtx, retentionDays)
	if err != nil {
		cm.logger.Error("failed to cleanup audit logs", slog.Any("error", err))
	} else if auditDeleted > 0 {
		cm.logger.Info("audit log cleanup completed",
			slog.Int64("rows_deleted", auditDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
