package guard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jossiefancies/gatekeeper/internal/models"
)

// SessionConfig holds the two session ceilings: whichever is reached first
// ends the session.
type SessionConfig struct {
	AbsoluteTTL time.Duration // max session age since login
	IdleTimeout time.Duration // max gap between admin requests
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		AbsoluteTTL: 4 * time.Hour,
		IdleTimeout: 30 * time.Minute,
	}
}

// Session is a server-side admin session record. The client only holds the
// opaque ID.
type Session struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	LoginIP      string    `json:"login_ip"`
	Admin        bool      `json:"admin"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionManager issues admin sessions at login and expires them on every
// authenticated request, enforcing both the absolute and the inactivity
// ceiling.
type SessionManager struct {
	store  KeyValueStore
	config SessionConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewSessionManager(store KeyValueStore, config SessionConfig, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Create issues a new Active session, stamping start and last-activity to now.
func (m *SessionManager) Create(ctx context.Context, username, loginIP string) (*Session, error) {
	now := m.now()
	session := &Session{
		ID:           uuid.NewString(),
		Username:     username,
		LoginIP:      loginIP,
		Admin:        true,
		StartedAt:    now,
		LastActivity: now,
	}

	if err := m.persist(ctx, session, m.config.AbsoluteTTL); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate runs the session state machine for one request. An Active session
// within both ceilings has its last-activity refreshed and is returned; a
// session past either ceiling is destroyed and ErrSessionExpired is returned.
// A missing or unreadable record yields ErrUnauthorized.
//
// A live session without a last-activity stamp (legacy record) is treated as
// just-started and stamped, never destroyed for missing metadata.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (*Session, error) {
	data, err := m.store.Get(ctx, m.key(sessionID))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, models.ErrUnauthorized
		}
		m.logger.Error("failed to read session", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		m.logger.Warn("malformed session record, destroying",
			slog.String("session_id", sessionID))
		_ = m.Destroy(ctx, sessionID)
		return nil, models.ErrUnauthorized
	}

	now := m.now()
	age := now.Sub(session.StartedAt)
	if age >= m.config.AbsoluteTTL {
		m.expire(ctx, &session, "absolute ceiling")
		return nil, models.ErrSessionExpired
	}

	if session.LastActivity.IsZero() {
		session.LastActivity = now
	} else if now.Sub(session.LastActivity) >= m.config.IdleTimeout {
		m.expire(ctx, &session, "inactivity")
		return nil, models.ErrSessionExpired
	} else {
		session.LastActivity = now
	}

	// Keep the store's expiry aligned with the absolute ceiling.
	if err := m.persist(ctx, &session, m.config.AbsoluteTTL-age); err != nil {
		m.logger.Error("failed to refresh session", slog.Any("error", err))
	}

	return &session, nil
}

// Destroy logs the session out.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, m.key(sessionID))
}

func (m *SessionManager) expire(ctx context.Context, session *Session, reason string) {
	m.logger.Info("admin session expired",
		slog.String("username", session.Username),
		slog.String("login_ip", session.LoginIP),
		slog.String("reason", reason))
	if err := m.Destroy(ctx, session.ID); err != nil {
		m.logger.Error("failed to destroy expired session", slog.Any("error", err))
	}
}

func (m *SessionManager) persist(ctx context.Context, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return m.store.SetWithTTL(ctx, m.key(session.ID), data, ttl)
}

func (m *SessionManager) key(sessionID string) string {
	return "admin_session:" + sessionID
}
