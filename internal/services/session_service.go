package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hostall/hostguard/internal/metrics"
	"github.com/hostall/hostguard/internal/models"
	pkglogger "github.com/hostall/hostguard/pkg/logger"
)

// SessionConfig holds session lifetime limits
type SessionConfig struct {
	MaxAge     time.Duration // absolute cap from start, not extended by activity
	Inactivity time.Duration
}

// SessionService owns the live admin sessions. One session per user; a new
// login supersedes the previous one. Expiry is enforced by SweepExpired,
// driven from the background monitor, and by TouchSession on access.
type SessionService struct {
	mu     sync.Mutex
	byID   map[string]*models.Session
	byUser map[string]string

	config SessionConfig
	events EventRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(config SessionConfig, events EventRecorder, logger *slog.Logger, nowFn func() time.Time) *SessionService {
	if nowFn == nil {
		nowFn = time.Now
	}

	return &SessionService{
		byID:   make(map[string]*models.Session),
		byUser: make(map[string]string),
		config: config,
		events: events,
		logger: logger,
		now:    nowFn,
	}
}

// Create opens a session for a user, superseding any existing one
func (s *SessionService) Create(userID, email string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldID, ok := s.byUser[userID]; ok {
		delete(s.byID, oldID)
		s.logger.Info("session superseded by new login",
			slog.String("user_email", pkglogger.SanitizedEmail(email)))
	}

	now := s.now()
	session := &models.Session{
		SessionID:    uuid.New().String(),
		UserID:       userID,
		Email:        email,
		StartTime:    now,
		LastActivity: now,
	}

	s.byID[session.SessionID] = session
	s.byUser[userID] = session.SessionID

	return session
}

// TouchSession records activity against a live session and returns it.
// A session past either limit is removed here rather than waiting for the
// next sweep. Implements auth.SessionRegistry.
func (s *SessionService) TouchSession(sessionID string) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return nil, false
	}

	now := s.now()
	if reason := session.ExpiryReason(now, s.config.MaxAge, s.config.Inactivity); reason != "" {
		s.forceLogoutLocked(session, reason)
		return nil, false
	}

	session.LastActivity = now
	snapshot := *session
	return &snapshot, true
}

// Get returns a session without touching its activity timestamp
func (s *SessionService) Get(sessionID string) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return nil, false
	}
	snapshot := *session
	return &snapshot, true
}

// End removes a session on explicit user logout
func (s *SessionService) End(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return false
	}

	delete(s.byID, sessionID)
	delete(s.byUser, session.UserID)

	if s.events != nil {
		s.events.Record(models.SecurityEvent{
			Type:      models.EventLogout,
			UserEmail: session.Email,
			Success:   true,
			Details:   "user_initiated",
		})
	}

	return true
}

// Discard removes a session without logging a logout event. Used when a
// login fails after the session record was created.
func (s *SessionService) Discard(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.byID[sessionID]; ok {
		delete(s.byID, sessionID)
		delete(s.byUser, session.UserID)
	}
}

// SweepExpired force-logs-out every session past its absolute or
// inactivity limit, returning the number removed.
func (s *SessionService) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, session := range s.byID {
		if reason := session.ExpiryReason(now, s.config.MaxAge, s.config.Inactivity); reason != "" {
			s.forceLogoutLocked(session, reason)
			removed++
		}
	}
	return removed
}

// forceLogoutLocked invalidates a session and logs the forced logout.
// Caller must hold s.mu.
func (s *SessionService) forceLogoutLocked(session *models.Session, reason string) {
	delete(s.byID, session.SessionID)
	delete(s.byUser, session.UserID)

	s.logger.Info("forced logout",
		slog.String("user_email", pkglogger.SanitizedEmail(session.Email)),
		slog.String("reason", reason))
	metrics.ForcedLogouts.WithLabelValues(reason).Inc()

	if s.events != nil {
		s.events.Record(models.SecurityEvent{
			Type:      models.EventForcedLogout,
			UserEmail: session.Email,
			Success:   true,
			Details:   reason,
		})
	}
}

// ActiveCount returns the number of live sessions
func (s *SessionService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
