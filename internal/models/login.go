package models

import "time"

// LoginOutcome classifies the result of a login attempt. Each pipeline stage
// returns one explicitly instead of signalling through errors, so the stages
// that count failures can decide per outcome.
type LoginOutcome int

const (
	OutcomeSuccess LoginOutcome = iota
	OutcomeInvalidInput
	OutcomeInvalidCredentials
	OutcomeLocked
	OutcomeRateLimited
	OutcomeError
)

func (o LoginOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidInput:
		return "invalid_input"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeLocked:
		return "account_locked"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// CountsAsFailure reports whether the outcome feeds the lockout tracker.
// Policy rejections (locked, rate limited) and input validation failures do
// not count; bad credentials and internal errors during verification do, so
// repeated server errors cannot be used to bypass throttling.
func (o LoginOutcome) CountsAsFailure() bool {
	return o == OutcomeInvalidCredentials || o == OutcomeError
}

// LoginResult is the aggregate result handed back to the HTTP layer.
type LoginResult struct {
	Outcome     LoginOutcome
	RedirectURL string        // set on success
	RetryAfter  time.Duration // set when rate limited
	SessionID   string        // set on success
	User        *AdminUser    // set on success
}
