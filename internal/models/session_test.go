package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionExpiryReason(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	maxAge := 8 * time.Hour
	inactivity := 30 * time.Minute

	cases := []struct {
		name         string
		at           time.Time
		lastActivity time.Time
		want         string
	}{
		{"live session", start.Add(10 * time.Minute), start.Add(9 * time.Minute), ""},
		{"exactly at inactivity limit", start.Add(30 * time.Minute), start, ""},
		{"idle past limit", start.Add(31 * time.Minute), start, LogoutReasonInactivity},
		{"exactly at absolute cap", start.Add(8 * time.Hour), start.Add(8 * time.Hour), ""},
		{"past absolute cap", start.Add(8*time.Hour + time.Minute), start.Add(8 * time.Hour), LogoutReasonExpired},
		{"cap wins when both tripped", start.Add(9 * time.Hour), start, LogoutReasonExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Session{StartTime: start, LastActivity: tc.lastActivity}
			assert.Equal(t, tc.want, s.ExpiryReason(tc.at, maxAge, inactivity))
		})
	}
}

func TestRetryAfterMinutesRoundsUp(t *testing.T) {
	assert.Equal(t, 0, RateLimitDecision{}.RetryAfterMinutes())
	assert.Equal(t, 1, RateLimitDecision{RetryAfter: time.Second}.RetryAfterMinutes())
	assert.Equal(t, 15, RateLimitDecision{RetryAfter: 15 * time.Minute}.RetryAfterMinutes())
	assert.Equal(t, 15, RateLimitDecision{RetryAfter: 14*time.Minute + time.Second}.RetryAfterMinutes())
}

func TestSecurityEventIsFailure(t *testing.T) {
	assert.False(t, SecurityEvent{Type: EventLoginSuccess, Success: true}.IsFailure())
	assert.True(t, SecurityEvent{Type: EventLoginFailed, Success: false}.IsFailure())
	assert.True(t, SecurityEvent{Type: EventSuspiciousInput, Success: true}.IsFailure())
	assert.True(t, SecurityEvent{Type: EventRateLimitExceeded, Success: true}.IsFailure())
}

func TestAccountIsLocked(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.False(t, (&Account{}).IsLocked(now))

	until := now.Add(15 * time.Minute)
	locked := &Account{LockedUntil: &until}
	assert.True(t, locked.IsLocked(now))
	assert.False(t, locked.IsLocked(until))
}
