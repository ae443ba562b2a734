package models

import "time"

// Security event types emitted by the guard
const (
	EventLoginSuccess      = "login_success"
	EventLoginFailed       = "login_failed"
	EventSuspiciousInput   = "login_suspicious_input"
	EventRateLimitExceeded = "rate_limit_exceeded"
	EventForcedLogout      = "forced_logout"
	EventLogout            = "logout"
	EventTwoFactorEnabled  = "2fa_enabled"
	EventTwoFactorDisabled = "2fa_disabled"
	EventTwoFactorFailed   = "2fa_verification_failed"
	EventPasswordReset     = "password_reset"
	EventEscalation        = "threshold_escalation"
)

// Forced logout reason codes
const (
	LogoutReasonExpired    = "session_expired"
	LogoutReasonInactivity = "inactivity"
)

// SecurityEvent is an immutable audit record of a security-relevant outcome.
type SecurityEvent struct {
	ID        string            `db:"id" json:"id"`
	Type      string            `db:"event_type" json:"type"`
	UserEmail string            `db:"user_email" json:"user_email"`
	Success   bool              `db:"success" json:"success"`
	Details   string            `db:"details" json:"details"`
	Timestamp time.Time         `db:"created_at" json:"timestamp"`
	UserAgent string            `db:"user_agent" json:"user_agent,omitempty"`
	ClientIP  string            `db:"client_ip" json:"client_ip,omitempty"`
	Metadata  map[string]string `db:"metadata" json:"metadata,omitempty"`
}

// IsFailure reports whether the event counts toward the escalation
// threshold sweep.
func (e SecurityEvent) IsFailure() bool {
	return !e.Success || e.Type == EventSuspiciousInput || e.Type == EventRateLimitExceeded
}
