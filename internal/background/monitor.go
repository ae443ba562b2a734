package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/hostall/hostguard/internal/repositories"
	"github.com/hostall/hostguard/internal/services"
)

// MonitorConfig holds the tick intervals for the background monitor
type MonitorConfig struct {
	SweepInterval          time.Duration
	SessionCheckInterval   time.Duration
	AttemptCleanupInterval time.Duration
}

// Monitor runs the guard's periodic work: escalation sweeps over the event
// log, session expiry enforcement, and cleanup of stale attempt logs and
// expired reset tokens.
type Monitor struct {
	escalation  *services.EscalationService
	sessions    *services.SessionService
	limiter     *services.RateLimitService
	resetTokens *repositories.ResetTokenRepository
	config      MonitorConfig
	logger      *slog.Logger
	stopCh      chan struct{}
}

// NewMonitor creates a new background monitor
func NewMonitor(
	escalation *services.EscalationService,
	sessions *services.SessionService,
	limiter *services.RateLimitService,
	resetTokens *repositories.ResetTokenRepository,
	config MonitorConfig,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		escalation:  escalation,
		sessions:    sessions,
		limiter:     limiter,
		resetTokens: resetTokens,
		config:      config,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic tasks. It blocks until Stop is called or the
// context is cancelled, so callers run it in its own goroutine.
func (m *Monitor) Start(ctx context.Context) {
	sweep := time.NewTicker(m.config.SweepInterval)
	defer sweep.Stop()
	sessionCheck := time.NewTicker(m.config.SessionCheckInterval)
	defer sessionCheck.Stop()
	cleanup := time.NewTicker(m.config.AttemptCleanupInterval)
	defer cleanup.Stop()

	// Run an escalation sweep immediately on startup
	m.escalation.Sweep()

	for {
		select {
		case <-sweep.C:
			m.escalation.Sweep()
		case <-sessionCheck.C:
			m.checkSessions()
		case <-cleanup.C:
			m.runCleanup(ctx)
		case <-m.stopCh:
			m.logger.Info("background monitor stopped")
			return
		case <-ctx.Done():
			m.logger.Info("background monitor context cancelled")
			return
		}
	}
}

func (m *Monitor) checkSessions() {
	removed := m.sessions.SweepExpired()
	if removed > 0 {
		m.logger.Info("expired sessions removed", slog.Int("count", removed))
	}
}

func (m *Monitor) runCleanup(ctx context.Context) {
	m.limiter.Cleanup()

	if m.resetTokens == nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := m.resetTokens.DeleteExpired(cleanupCtx)
	if err != nil {
		m.logger.Error("failed to cleanup expired reset tokens", slog.Any("error", err))
		return
	}
	if rowsDeleted > 0 {
		m.logger.Info("expired reset token cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the monitor to stop
func (m *Monitor) Stop() {
	close(m.stopCh)
}
