package services

import (
	"context"
	"time"

	"github.com/jossiefancies/gatekeeper/internal/guard"
	"github.com/jossiefancies/gatekeeper/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// MockAdminUserRepository is a func-field mock for AdminUserRepository
type MockAdminUserRepository struct {
	GetByUsernameFunc   func(ctx context.Context, username string) (*models.AdminUser, error)
	UpdateLastLoginFunc func(ctx context.Context, userID, ipAddress string) error
}

func (m *MockAdminUserRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminUserRepository) UpdateLastLogin(ctx context.Context, userID, ipAddress string) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, userID, ipAddress)
	}
	return nil
}

// MockAttemptRecorder captures recorded attempts for assertions
type MockAttemptRecorder struct {
	RecordAttemptFunc func(ctx context.Context, attempt *models.LoginAttempt) error
	Recorded          []*models.LoginAttempt
}

func (m *MockAttemptRecorder) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	m.Recorded = append(m.Recorded, attempt)
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

// MockLockoutTracker is a func-field mock for LockoutTracker
type MockLockoutTracker struct {
	IsLockedFunc      func(ctx context.Context, username string) bool
	RecordFailureFunc func(ctx context.Context, ip, username string)
	ClearFunc         func(ctx context.Context, ip, username string) error

	Failures int
	Cleared  int
}

func (m *MockLockoutTracker) IsLocked(ctx context.Context, username string) bool {
	if m.IsLockedFunc != nil {
		return m.IsLockedFunc(ctx, username)
	}
	return false
}

func (m *MockLockoutTracker) RecordFailure(ctx context.Context, ip, username string) {
	m.Failures++
	if m.RecordFailureFunc != nil {
		m.RecordFailureFunc(ctx, ip, username)
	}
}

func (m *MockLockoutTracker) Clear(ctx context.Context, ip, username string) error {
	m.Cleared++
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, ip, username)
	}
	return nil
}

// MockSessionManager is a func-field mock for SessionManager
type MockSessionManager struct {
	CreateFunc  func(ctx context.Context, username, loginIP string) (*guard.Session, error)
	DestroyFunc func(ctx context.Context, sessionID string) error
}

func (m *MockSessionManager) Create(ctx context.Context, username, loginIP string) (*guard.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, username, loginIP)
	}
	return &guard.Session{
		ID:       "session-test-id",
		Username: username,
		LoginIP:  loginIP,
	}, nil
}

func (m *MockSessionManager) Destroy(ctx context.Context, sessionID string) error {
	if m.DestroyFunc != nil {
		return m.DestroyFunc(ctx, sessionID)
	}
	return nil
}

// MockAuditRepository is a func-field mock for AuditRepository
type MockAuditRepository struct {
	CreateFunc  func(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error)
	ListFunc    func(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error)
	GetFailedFunc func(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	CleanupFunc func(ctx context.Context, olderThanDays int) (int64, error)

	Created []*models.AuditLog
}

func (m *MockAuditRepository) Create(ctx context.Context, log *models.AuditLog) (*models.AuditLog, error) {
	m.Created = append(m.Created, log)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	return log, nil
}

func (m *MockAuditRepository) List(ctx context.Context, eventType string, limit, offset int) ([]*models.AuditLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, eventType, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditRepository) GetFailed(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	if m.GetFailedFunc != nil {
		return m.GetFailedFunc(ctx, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, olderThanDays)
	}
	return 0, nil
}

// NewTestAdminUser builds an eligible superuser account with the given
// password, hashed at minimum cost to keep test runs fast.
func NewTestAdminUser(username, password string) *models.AdminUser {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &models.AdminUser{
		ID:           "admin-test-id",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsSuperuser:  true,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}
