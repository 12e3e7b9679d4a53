package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jossiefancies/gatekeeper/internal/database"
	"github.com/jossiefancies/gatekeeper/internal/middleware"
	"github.com/jossiefancies/gatekeeper/internal/models"
	pkghttp "github.com/jossiefancies/gatekeeper/pkg/http"
)

// AuditQueryService exposes the audit trail to the monitoring endpoints.
type AuditQueryService interface {
	List(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
	ListFailed(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// AttemptQueryRepository exposes the login attempt trail.
type AttemptQueryRepository interface {
	ListRecent(ctx context.Context, limit, offset int) ([]*models.LoginAttempt, error)
	CountFailedSince(ctx context.Context, since time.Time) (int, error)
}

// AdminHandler serves the authenticated admin endpoints
type AdminHandler struct {
	audit    AuditQueryService
	attempts AttemptQueryRepository
	db       *database.DB
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(audit AuditQueryService, attempts AttemptQueryRepository, db *database.DB) *AdminHandler {
	return &AdminHandler{
		audit:    audit,
		attempts: attempts,
		db:       db,
	}
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// parsePagination reads limit/offset query params with sane bounds
func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// DashboardResponse summarizes service state for the admin landing page
type DashboardResponse struct {
	Username         string `json:"username"`
	FailedLastHour   int    `json:"failed_logins_last_hour"`
	DBTotalConns     int32  `json:"db_total_conns"`
	DBIdleConns      int32  `json:"db_idle_conns"`
	DBAcquiredConns  int32  `json:"db_acquired_conns"`
}

// Dashboard returns a summary for the authenticated admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r)
	if session == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	failed, err := h.attempts.CountFailedSince(r.Context(), time.Now().Add(-1*time.Hour))
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load dashboard")
		return
	}

	resp := DashboardResponse{
		Username:       session.Username,
		FailedLastHour: failed,
	}
	if h.db != nil {
		stats := h.db.Stats()
		resp.DBTotalConns = stats.TotalConns()
		resp.DBIdleConns = stats.IdleConns()
		resp.DBAcquiredConns = stats.AcquiredConns()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// AuditLogEntry is the wire form of an audit record
type AuditLogEntry struct {
	ID            string                 `json:"id"`
	EventType     string                 `json:"event_type"`
	ActorUsername *string                `json:"actor_username,omitempty"`
	Action        string                 `json:"action"`
	Success       bool                   `json:"success"`
	FailureReason *string                `json:"failure_reason,omitempty"`
	IPAddress     *string                `json:"ip_address,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     string                 `json:"created_at"`
}

func auditLogToEntry(log *models.AuditLog) AuditLogEntry {
	return AuditLogEntry{
		ID:            log.ID.String(),
		EventType:     log.EventType,
		ActorUsername: log.ActorUsername,
		Action:        log.Action,
		Success:       log.Success,
		FailureReason: log.FailureReason,
		IPAddress:     log.IPAddress,
		Metadata:      log.Metadata,
		CreatedAt:     log.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListAuditLogs returns the audit trail, newest first. Supports
// event_type and failed_only filters plus limit/offset pagination.
func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	var (
		logs []*models.AuditLog
		err  error
	)
	if r.URL.Query().Get("failed_only") == "true" {
		logs, err = h.audit.ListFailed(r.Context(), limit, offset)
	} else {
		logs, err = h.audit.List(r.Context(), r.URL.Query().Get("event_type"), limit, offset)
	}
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load audit logs")
		return
	}

	entries := make([]AuditLogEntry, 0, len(logs))
	for _, log := range logs {
		entries = append(entries, auditLogToEntry(log))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"audit_logs": entries,
		"limit":      limit,
		"offset":     offset,
	})
}

// LoginAttemptEntry is the wire form of a login attempt record
type LoginAttemptEntry struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	IPAddress     string  `json:"ip_address"`
	UserAgent     string  `json:"user_agent"`
	AttemptTime   string  `json:"attempt_time"`
	Success       bool    `json:"success"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

// ListLoginAttempts returns recent login attempts, newest first
func (h *AdminHandler) ListLoginAttempts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	attempts, err := h.attempts.ListRecent(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load login attempts")
		return
	}

	entries := make([]LoginAttemptEntry, 0, len(attempts))
	for _, a := range attempts {
		entries = append(entries, LoginAttemptEntry{
			ID:            a.ID,
			Username:      a.Username,
			IPAddress:     a.IPAddress,
			UserAgent:     a.UserAgent,
			AttemptTime:   a.AttemptTime.UTC().Format(time.RFC3339),
			Success:       a.Success,
			FailureReason: a.FailureReason,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"login_attempts": entries,
		"limit":          limit,
		"offset":         offset,
	})
}
