package guard

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// RateLimitConfig tunes one protected endpoint.
type RateLimitConfig struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// DefaultLoginRateLimit returns the admin login limits: 5 failed attempts per
// 15 minute window, then a 15 minute block.
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:   5,
		Window:        15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// rateCounter is the stored counter value: attempt count plus the start of
// the current window.
type rateCounter struct {
	Attempts     int       `json:"attempts"`
	FirstAttempt time.Time `json:"first_attempt"`
}

// RateLimiter counts recent failed attempts per identity within a sliding
// window. Only failures are recorded; callers decide what a failure is
// (any response with status >= 400, or an internal error).
type RateLimiter struct {
	store  KeyValueStore
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimiter(store KeyValueStore, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Check reads the counter for identity and decides whether the next attempt
// may proceed. Store errors and malformed stored values never block a
// request; they reset to a fresh counter instead.
func (rl *RateLimiter) Check(ctx context.Context, identity string, cfg RateLimitConfig) Decision {
	counter := rl.load(ctx, identity, cfg)

	if counter.Attempts >= cfg.MaxAttempts {
		rl.logger.Warn("rate limit exceeded",
			slog.String("identity", identity),
			slog.Int("attempts", counter.Attempts))
		return Decision{Allowed: false, RetryAfter: cfg.BlockDuration}
	}

	return Decision{Allowed: true}
}

// RecordFailure increments the counter for identity and refreshes its TTL.
// The first failure in a window stamps the window start.
func (rl *RateLimiter) RecordFailure(ctx context.Context, identity string, cfg RateLimitConfig) {
	counter := rl.load(ctx, identity, cfg)

	counter.Attempts++
	if counter.FirstAttempt.IsZero() {
		counter.FirstAttempt = rl.now()
	}

	data, err := json.Marshal(counter)
	if err != nil {
		rl.logger.Error("failed to encode rate counter", slog.Any("error", err))
		return
	}
	if err := rl.store.SetWithTTL(ctx, rl.key(identity), data, cfg.BlockDuration); err != nil {
		rl.logger.Error("failed to store rate counter",
			slog.String("identity", identity),
			slog.Any("error", err))
	}
}

// Reset clears the counter for identity.
func (rl *RateLimiter) Reset(ctx context.Context, identity string) error {
	return rl.store.Delete(ctx, rl.key(identity))
}

// load fetches the counter, resetting it when absent, unreadable, or when the
// window since the first recorded attempt has elapsed.
func (rl *RateLimiter) load(ctx context.Context, identity string, cfg RateLimitConfig) rateCounter {
	data, err := rl.store.Get(ctx, rl.key(identity))
	if err != nil {
		if err != ErrKeyNotFound {
			rl.logger.Error("failed to read rate counter",
				slog.String("identity", identity),
				slog.Any("error", err))
		}
		return rateCounter{}
	}

	var counter rateCounter
	if err := json.Unmarshal(data, &counter); err != nil {
		rl.logger.Warn("malformed rate counter, resetting",
			slog.String("identity", identity))
		return rateCounter{}
	}

	if !counter.FirstAttempt.IsZero() && rl.now().Sub(counter.FirstAttempt) > cfg.Window {
		return rateCounter{}
	}

	return counter
}

func (rl *RateLimiter) key(identity string) string {
	return "rate_limit_admin:" + identity
}
