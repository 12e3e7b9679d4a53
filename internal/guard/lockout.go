package guard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// LockoutConfig tunes account lockout tracking.
type LockoutConfig struct {
	Threshold          int           // username failures before the account locks
	LockDuration       time.Duration // how long the lock flag lives
	UsernameWindow     time.Duration // TTL of the username-scoped failure list
	IPWindow           time.Duration // TTL of the IP-scoped failure list
	MaxUsernameEntries int
	MaxIPEntries       int
}

func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		Threshold:          5,
		LockDuration:       1 * time.Hour,
		UsernameWindow:     1 * time.Hour,
		IPWindow:           2 * time.Hour,
		MaxUsernameEntries: 10,
		MaxIPEntries:       20,
	}
}

// failedAttempt is one entry in a stored failure list.
type failedAttempt struct {
	Username  string    `json:"username"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
}

// LockoutTracker counts failed login attempts per account identity and locks
// the account after a threshold, independent of source IP. A lock and the
// failure lists behind it are only ever cleared together, on a successful
// login.
type LockoutTracker struct {
	store  KeyValueStore
	config LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewLockoutTracker(store KeyValueStore, config LockoutConfig, logger *slog.Logger) *LockoutTracker {
	return &LockoutTracker{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// RecordFailure appends the attempt to both the IP-scoped and the
// username-scoped lists and sets the lock flag once the username list reaches
// the threshold. The lock decision is taken here, on each recorded failure,
// never by polling.
func (t *LockoutTracker) RecordFailure(ctx context.Context, ip, username string) {
	attempt := failedAttempt{
		Username:  username,
		IPAddress: ip,
		Timestamp: t.now(),
	}

	ipList := t.appendCapped(ctx, t.ipKey(ip), attempt, t.config.MaxIPEntries, t.config.IPWindow)
	userList := t.appendCapped(ctx, t.userKey(username), attempt, t.config.MaxUsernameEntries, t.config.UsernameWindow)

	if len(userList) >= t.config.Threshold {
		if err := t.store.SetWithTTL(ctx, t.lockKey(username), []byte("1"), t.config.LockDuration); err != nil {
			t.logger.Error("failed to set lockout flag",
				slog.String("username", username),
				slog.Any("error", err))
		} else {
			t.logger.Warn("account locked after repeated failures",
				slog.String("username", username),
				slog.String("ip_address", ip),
				slog.Int("failures", len(userList)))
		}
	}

	if len(ipList) >= 3 {
		t.logger.Error("multiple failed admin logins from one address",
			slog.String("ip_address", ip),
			slog.Int("failures", len(ipList)),
			slog.String("last_username", username))
	}
}

// IsLocked reports whether a lock flag exists for the account. Store errors
// fail open so an unreachable backend cannot lock every admin out.
func (t *LockoutTracker) IsLocked(ctx context.Context, username string) bool {
	_, err := t.store.Get(ctx, t.lockKey(username))
	if err == nil {
		return true
	}
	if err != ErrKeyNotFound {
		t.logger.Error("failed to check lockout flag",
			slog.String("username", username),
			slog.Any("error", err))
	}
	return false
}

// Clear removes the IP list, the username list, and the lock flag. All three
// deletions are issued together so a successful login always leaves the
// account fully reset.
func (t *LockoutTracker) Clear(ctx context.Context, ip, username string) error {
	return errors.Join(
		t.store.Delete(ctx, t.ipKey(ip)),
		t.store.Delete(ctx, t.userKey(username)),
		t.store.Delete(ctx, t.lockKey(username)),
	)
}

// appendCapped reads a failure list, appends the attempt, trims to the most
// recent max entries, and writes it back with a refreshed TTL. Unreadable
// stored values reset to an empty list.
func (t *LockoutTracker) appendCapped(ctx context.Context, key string, attempt failedAttempt, max int, ttl time.Duration) []failedAttempt {
	var list []failedAttempt

	data, err := t.store.Get(ctx, key)
	if err == nil {
		if err := json.Unmarshal(data, &list); err != nil {
			t.logger.Warn("malformed failure list, resetting", slog.String("key", key))
			list = nil
		}
	} else if err != ErrKeyNotFound {
		t.logger.Error("failed to read failure list",
			slog.String("key", key),
			slog.Any("error", err))
	}

	list = append(list, attempt)
	if len(list) > max {
		list = list[len(list)-max:]
	}

	encoded, err := json.Marshal(list)
	if err != nil {
		t.logger.Error("failed to encode failure list", slog.Any("error", err))
		return list
	}
	if err := t.store.SetWithTTL(ctx, key, encoded, ttl); err != nil {
		t.logger.Error("failed to store failure list",
			slog.String("key", key),
			slog.Any("error", err))
	}

	return list
}

func (t *LockoutTracker) ipKey(ip string) string {
	return "failed_admin_logins:ip:" + ip
}

func (t *LockoutTracker) userKey(username string) string {
	return "failed_admin_logins:user:" + username
}

func (t *LockoutTracker) lockKey(username string) string {
	return "admin_lockout:" + username
}
