package models

import "time"

// LoginAttempt is the persistent record of a single admin login attempt,
// kept for the security monitoring endpoints. The guard's own counters live
// in the key-value store; this table is the audit trail behind them.
type LoginAttempt struct {
	ID            string
	Username      string
	IPAddress     string
	UserAgent     string
	AttemptTime   time.Time
	Success       bool
	FailureReason *string
	ExpiresAt     time.Time
}
