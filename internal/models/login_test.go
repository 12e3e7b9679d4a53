package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginOutcomeString(t *testing.T) {
	tests := []struct {
		outcome LoginOutcome
		want    string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeInvalidInput, "invalid_input"},
		{OutcomeInvalidCredentials, "invalid_credentials"},
		{OutcomeLocked, "account_locked"},
		{OutcomeRateLimited, "rate_limited"},
		{OutcomeError, "internal_error"},
		{LoginOutcome(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.outcome.String())
	}
}

func TestCountsAsFailure(t *testing.T) {
	assert.True(t, OutcomeInvalidCredentials.CountsAsFailure())
	assert.True(t, OutcomeError.CountsAsFailure())

	assert.False(t, OutcomeSuccess.CountsAsFailure())
	assert.False(t, OutcomeInvalidInput.CountsAsFailure())
	assert.False(t, OutcomeLocked.CountsAsFailure())
	assert.False(t, OutcomeRateLimited.CountsAsFailure())
}
