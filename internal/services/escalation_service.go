package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hostall/hostguard/internal/metrics"
	"github.com/hostall/hostguard/internal/models"
)

// AlertSender notifies an operator of an escalation. Optional; nil
// disables alerting.
type AlertSender interface {
	SendSecurityAlert(ctx context.Context, subject, body string) error
}

// EscalationConfig holds the threshold sweep parameters
type EscalationConfig struct {
	Threshold int           // failed/suspicious events in the window that trigger tightening
	Window    time.Duration // trailing window the sweep counts over
	Duration  time.Duration // how long tightened policies stay in force
}

// Fixed decrements applied under escalation
const (
	loginMaxDecrement   = 1
	loginMaxFloor       = 2
	generalMaxDecrement = 20
	generalMaxFloor     = 50
)

// EscalationService tightens rate-limit policies under sustained abuse and
// restores defaults after the escalation period. Sweep is driven by the
// background monitor every minute.
type EscalationService struct {
	mu          sync.Mutex
	limiter     *RateLimitService
	events      *SecurityEventService
	alerts      AlertSender
	config      EscalationConfig
	activeUntil time.Time
	logger      *slog.Logger
	now         func() time.Time
}

// NewEscalationService creates a new EscalationService
func NewEscalationService(limiter *RateLimitService, events *SecurityEventService, alerts AlertSender, config EscalationConfig, logger *slog.Logger, nowFn func() time.Time) *EscalationService {
	if nowFn == nil {
		nowFn = time.Now
	}

	return &EscalationService{
		limiter: limiter,
		events:  events,
		alerts:  alerts,
		config:  config,
		logger:  logger,
		now:     nowFn,
	}
}

// Sweep recomputes the trailing failure count and escalates or resets.
// Escalation is idempotent: re-applying while active yields the same
// floor-clamped policy values and extends the active period.
func (s *EscalationService) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	failures := s.events.FailureCountSince(now.Add(-s.config.Window))

	if failures > s.config.Threshold {
		wasActive := !s.activeUntil.IsZero()

		s.limiter.TightenFromDefaults(models.ActionLogin, loginMaxDecrement, loginMaxFloor)
		s.limiter.TightenFromDefaults(models.ActionGeneral, generalMaxDecrement, generalMaxFloor)
		s.activeUntil = now.Add(s.config.Duration)
		metrics.EscalationActive.Set(1)

		s.logger.Warn("security escalation applied",
			slog.Int("failures_last_window", failures),
			slog.Time("active_until", s.activeUntil))

		if !wasActive {
			s.events.Record(models.SecurityEvent{
				Type:    models.EventEscalation,
				Success: true,
				Details: "rate limit policies tightened",
				Metadata: map[string]string{
					"failures": strconv.Itoa(failures),
				},
			})
			s.sendAlert(failures)
		}
		return
	}

	if !s.activeUntil.IsZero() && !now.Before(s.activeUntil) {
		s.limiter.RestoreDefaults()
		s.activeUntil = time.Time{}
		metrics.EscalationActive.Set(0)
		s.logger.Info("security escalation lifted")
	}
}

// Active reports whether tightened policies are in force, and until when
func (s *EscalationService) Active() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.activeUntil.IsZero(), s.activeUntil
}

func (s *EscalationService) sendAlert(failures int) {
	if s.alerts == nil {
		return
	}

	// Alert delivery is best-effort; a mail failure must not stall the sweep
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.alerts.SendSecurityAlert(sendCtx,
			"Security escalation: elevated failure rate",
			"The security guard observed "+strconv.Itoa(failures)+" failed or suspicious events in the trailing hour and has tightened login rate limits.")
		if err != nil {
			s.logger.Error("failed to send escalation alert", slog.Any("error", err))
		}
	}()
}
