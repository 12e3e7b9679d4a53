package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuditQuery struct {
	ListFunc       func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedFunc func(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

func (m *mockAuditQuery) List(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, eventType, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *mockAuditQuery) ListFailed(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListFailedFunc != nil {
		return m.ListFailedFunc(ctx, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

type mockAttemptQuery struct {
	ListRecentFunc       func(ctx context.Context, limit, offset int) ([]*models.LoginAttempt, error)
	CountFailedSinceFunc func(ctx context.Context, since time.Time) (int, error)
}

func (m *mockAttemptQuery) ListRecent(ctx context.Context, limit, offset int) ([]*models.LoginAttempt, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit, offset)
	}
	return []*models.LoginAttempt{}, nil
}

func (m *mockAttemptQuery) CountFailedSince(ctx context.Context, since time.Time) (int, error) {
	if m.CountFailedSinceFunc != nil {
		return m.CountFailedSinceFunc(ctx, since)
	}
	return 0, nil
}

func TestAdminHandler_Dashboard(t *testing.T) {
	attempts := &mockAttemptQuery{
		CountFailedSinceFunc: func(ctx context.Context, since time.Time) (int, error) {
			return 7, nil
		},
	}
	handler := NewAdminHandler(&mockAuditQuery{}, attempts, nil)

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	req = withSession(req, &guard.Session{ID: "s1", Username: "admin"})
	w := httptest.NewRecorder()

	handler.Dashboard(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin", resp.Username)
	assert.Equal(t, 7, resp.FailedLastHour)
}

func TestAdminHandler_Dashboard_NoSession(t *testing.T) {
	handler := NewAdminHandler(&mockAuditQuery{}, &mockAttemptQuery{}, nil)

	req := httptest.NewRequest("GET", "/admin/dashboard", nil)
	w := httptest.NewRecorder()

	handler.Dashboard(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminHandler_ListAuditLogs(t *testing.T) {
	reason := "invalid_credentials"
	actor := "admin"
	audit := &mockAuditQuery{
		ListFunc: func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
			assert.Equal(t, "login", eventType)
			assert.Equal(t, 25, limit)
			assert.Equal(t, 50, offset)
			return []*models.AuditLog{
				{
					ID:            uuid.New(),
					EventType:     models.AuditEventTypeLogin,
					ActorUsername: &actor,
					Action:        "login",
					Success:       false,
					FailureReason: &reason,
					CreatedAt:     time.Now(),
				},
			}, nil
		},
	}
	handler := NewAdminHandler(audit, &mockAttemptQuery{}, nil)

	req := httptest.NewRequest("GET", "/admin/audit-logs?event_type=login&limit=25&offset=50", nil)
	req = withSession(req, &guard.Session{ID: "s1", Username: "admin"})
	w := httptest.NewRecorder()

	handler.ListAuditLogs(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AuditLogs []AuditLogEntry `json:"audit_logs"`
		Limit     int             `json:"limit"`
		Offset    int             `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "login", resp.AuditLogs[0].EventType)
	require.NotNil(t, resp.AuditLogs[0].FailureReason)
	assert.Equal(t, "invalid_credentials", *resp.AuditLogs[0].FailureReason)
}

func TestAdminHandler_ListAuditLogs_FailedOnly(t *testing.T) {
	failedCalled := false
	audit := &mockAuditQuery{
		ListFailedFunc: func(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
			failedCalled = true
			return []*models.AuditLog{}, nil
		},
	}
	handler := NewAdminHandler(audit, &mockAttemptQuery{}, nil)

	req := httptest.NewRequest("GET", "/admin/audit-logs?failed_only=true", nil)
	w := httptest.NewRecorder()

	handler.ListAuditLogs(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, failedCalled)
}

func TestAdminHandler_ListLoginAttempts(t *testing.T) {
	attempts := &mockAttemptQuery{
		ListRecentFunc: func(ctx context.Context, limit, offset int) ([]*models.LoginAttempt, error) {
			return []*models.LoginAttempt{
				{
					ID:          "attempt-1",
					Username:    "admin",
					IPAddress:   "203.0.113.10",
					AttemptTime: time.Now(),
					Success:     true,
				},
			}, nil
		},
	}
	handler := NewAdminHandler(&mockAuditQuery{}, attempts, nil)

	req := httptest.NewRequest("GET", "/admin/login-attempts", nil)
	w := httptest.NewRecorder()

	handler.ListLoginAttempts(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		LoginAttempts []LoginAttemptEntry `json:"login_attempts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.LoginAttempts, 1)
	assert.Equal(t, "admin", resp.LoginAttempts[0].Username)
}

func TestParsePagination_Bounds(t *testing.T) {
	req := httptest.NewRequest("GET", "/admin/audit-logs?limit=10000&offset=-5", nil)
	limit, offset := parsePagination(req)

	assert.Equal(t, maxPageSize, limit, "limit must be capped")
	assert.Equal(t, 0, offset, "negative offsets are ignored")

	req = httptest.NewRequest("GET", "/admin/audit-logs", nil)
	limit, offset = parsePagination(req)
	assert.Equal(t, defaultPageSize, limit)
	assert.Equal(t, 0, offset)
}
