package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event for structured log output
type AuditEvent struct {
	EventType     string
	UserEmail     string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes security audit events to the structured log stream.
// This is the immediate, local half of the guard's dual-write audit trail;
// the store mirror is handled separately and may lag or drop.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogSecurityEvent logs a security-relevant outcome
func (al *AuditLogger) LogSecurityEvent(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserEmail != "" {
		attrs = append(attrs, slog.String("user_email", SanitizedEmail(event.UserEmail)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
