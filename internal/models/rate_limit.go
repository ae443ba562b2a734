package models

import "time"

// Rate-limited actions. Unknown actions fall back to ActionGeneral.
const (
	ActionLogin         = "login"
	ActionPasswordReset = "password_reset"
	ActionGeneral       = "general"
)

// RateLimitPolicy caps attempts per identifier within a sliding window.
type RateLimitPolicy struct {
	Max    int
	Window time.Duration
}

// Default policies. Escalation may tighten Max at runtime; these values are
// what an automatic reset restores.
func DefaultPolicies() map[string]RateLimitPolicy {
	return map[string]RateLimitPolicy{
		ActionLogin:         {Max: 5, Window: 15 * time.Minute},
		ActionPasswordReset: {Max: 3, Window: time.Hour},
		ActionGeneral:       {Max: 100, Window: time.Hour},
	}
}

// RateLimitDecision is the outcome of a rate-limit check.
type RateLimitDecision struct {
	Allowed    bool
	RetryAfter time.Duration
	Message    string
}

// RetryAfterMinutes returns the wait rounded up to whole minutes for
// user-facing messages.
func (d RateLimitDecision) RetryAfterMinutes() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	mins := int(d.RetryAfter / time.Minute)
	if d.RetryAfter%time.Minute != 0 {
		mins++
	}
	return mins
}
