package services_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(collector *eventCollector, clock *time.Time) *services.SessionService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewSessionService(services.SessionConfig{
		MaxAge:     8 * time.Hour,
		Inactivity: 30 * time.Minute,
	}, collector, logger, func() time.Time {
		return *clock
	})
}

func TestSession_TouchUpdatesActivity(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions := newTestSessions(&eventCollector{}, &clock)

	created := sessions.Create("user-1", "admin@hostall.com")
	require.NotEmpty(t, created.SessionID)

	clock = clock.Add(10 * time.Minute)
	touched, ok := sessions.TouchSession(created.SessionID)
	require.True(t, ok)
	assert.Equal(t, clock, touched.LastActivity)
	assert.Equal(t, created.StartTime, touched.StartTime)
}

func TestSession_NewLoginSupersedesOld(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions := newTestSessions(&eventCollector{}, &clock)

	first := sessions.Create("user-1", "admin@hostall.com")
	second := sessions.Create("user-1", "admin@hostall.com")

	_, ok := sessions.TouchSession(first.SessionID)
	assert.False(t, ok, "superseded session must be rejected")
	_, ok = sessions.TouchSession(second.SessionID)
	assert.True(t, ok)
	assert.Equal(t, 1, sessions.ActiveCount())
}

func TestSession_InactivityForcesLogout(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	collector := &eventCollector{}
	sessions := newTestSessions(collector, &clock)

	created := sessions.Create("user-1", "admin@hostall.com")

	// Stays active while touched regularly
	clock = clock.Add(29 * time.Minute)
	_, ok := sessions.TouchSession(created.SessionID)
	require.True(t, ok)

	// Idle past the inactivity limit
	clock = clock.Add(31 * time.Minute)
	_, ok = sessions.TouchSession(created.SessionID)
	assert.False(t, ok)

	require.Len(t, collector.events, 1)
	assert.Equal(t, models.EventForcedLogout, collector.events[0].Type)
	assert.Equal(t, models.LogoutReasonInactivity, collector.events[0].Details)
}

func TestSession_AbsoluteCapWinsOverRecentActivity(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	collector := &eventCollector{}
	sessions := newTestSessions(collector, &clock)

	created := sessions.Create("user-1", "admin@hostall.com")

	// Touch every 20 minutes right up to the 8 hour cap
	for i := 0; i < 24; i++ {
		clock = clock.Add(20 * time.Minute)
		_, ok := sessions.TouchSession(created.SessionID)
		require.True(t, ok)
	}

	clock = clock.Add(1 * time.Minute)
	_, ok := sessions.TouchSession(created.SessionID)
	assert.False(t, ok)

	require.Len(t, collector.events, 1)
	assert.Equal(t, models.LogoutReasonExpired, collector.events[0].Details)
}

func TestSession_SweepExpiredRemovesStaleSessions(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	collector := &eventCollector{}
	sessions := newTestSessions(collector, &clock)

	sessions.Create("user-1", "a@hostall.com")
	sessions.Create("user-2", "b@hostall.com")

	clock = clock.Add(10 * time.Minute)
	fresh := sessions.Create("user-3", "c@hostall.com")

	clock = clock.Add(25 * time.Minute)
	removed := sessions.SweepExpired()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, sessions.ActiveCount())
	_, ok := sessions.Get(fresh.SessionID)
	assert.True(t, ok)
	assert.Len(t, collector.events, 2)
}

func TestSession_EndRecordsUserLogout(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	collector := &eventCollector{}
	sessions := newTestSessions(collector, &clock)

	created := sessions.Create("user-1", "admin@hostall.com")
	assert.True(t, sessions.End(created.SessionID))
	assert.False(t, sessions.End(created.SessionID))

	require.Len(t, collector.events, 1)
	assert.Equal(t, models.EventLogout, collector.events[0].Type)
	assert.Equal(t, "user_initiated", collector.events[0].Details)
}

func TestSession_DiscardIsSilent(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	collector := &eventCollector{}
	sessions := newTestSessions(collector, &clock)

	created := sessions.Create("user-1", "admin@hostall.com")
	sessions.Discard(created.SessionID)

	assert.Equal(t, 0, sessions.ActiveCount())
	assert.Empty(t, collector.events)
}
