package models

import "time"

// Session tracks a privileged admin session. One active session per user;
// a fresh login supersedes the previous session.
type Session struct {
	SessionID    string
	UserID       string
	Email        string
	StartTime    time.Time
	LastActivity time.Time
}

// ExpiryReason returns the forced-logout reason code if the session has
// expired at t, or "" if it is still live. The absolute cap is checked
// before inactivity so a session that trips both reports session_expired.
func (s *Session) ExpiryReason(t time.Time, maxAge, inactivity time.Duration) string {
	if t.Sub(s.StartTime) > maxAge {
		return LogoutReasonExpired
	}
	if t.Sub(s.LastActivity) > inactivity {
		return LogoutReasonInactivity
	}
	return ""
}
