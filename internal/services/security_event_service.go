package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hostall/hostguard/internal/metrics"
	"github.com/hostall/hostguard/internal/models"
	pkglogger "github.com/hostall/hostguard/pkg/logger"
)

// SecurityEventMirror persists security events in the external store
type SecurityEventMirror interface {
	Append(ctx context.Context, event *models.SecurityEvent) error
}

// SecurityEventConfig holds event retention and mirror queue settings
type SecurityEventConfig struct {
	RingSize   int
	QueueSize  int
	Retries    int
	RetryDelay time.Duration
}

// SecurityEventService keeps the newest events in a bounded in-memory ring
// and mirrors each one to the store through an asynchronous outbound queue.
// Mirror failures are counted and logged, never surfaced to callers: the
// audit trail must not block or fail the primary flow.
type SecurityEventService struct {
	mu     sync.Mutex
	ring   []models.SecurityEvent
	config SecurityEventConfig

	mirror    SecurityEventMirror
	queue     chan models.SecurityEvent
	wg        sync.WaitGroup
	published atomic.Int64
	dropped   atomic.Int64

	audit  *pkglogger.AuditLogger
	logger *slog.Logger
	now    func() time.Time
}

// NewSecurityEventService creates a new SecurityEventService. The mirror
// may be nil (tests); events then stay local.
func NewSecurityEventService(mirror SecurityEventMirror, audit *pkglogger.AuditLogger, config SecurityEventConfig, logger *slog.Logger, nowFn func() time.Time) *SecurityEventService {
	if nowFn == nil {
		nowFn = time.Now
	}
	if config.RingSize <= 0 {
		config.RingSize = 1000
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}

	return &SecurityEventService{
		ring:   make([]models.SecurityEvent, 0, config.RingSize),
		config: config,
		mirror: mirror,
		queue:  make(chan models.SecurityEvent, config.QueueSize),
		audit:  audit,
		logger: logger,
		now:    nowFn,
	}
}

// Start launches the mirror worker. Call Stop to drain and shut down.
func (s *SecurityEventService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.mirrorWorker(ctx)
}

// Stop closes the outbound queue and waits for the worker to drain it
func (s *SecurityEventService) Stop() {
	close(s.queue)
	s.wg.Wait()
}

// Record appends an event to the ring, writes it to the structured log,
// and enqueues the best-effort mirror write.
func (s *SecurityEventService) Record(event models.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	s.mu.Lock()
	if len(s.ring) >= s.config.RingSize {
		// Evict oldest
		copy(s.ring, s.ring[1:])
		s.ring = s.ring[:len(s.ring)-1]
	}
	s.ring = append(s.ring, event)
	s.mu.Unlock()

	metrics.SecurityEvents.WithLabelValues(event.Type).Inc()

	if s.audit != nil {
		s.audit.LogSecurityEvent(pkglogger.AuditEvent{
			EventType:     event.Type,
			UserEmail:     event.UserEmail,
			IPAddress:     event.ClientIP,
			UserAgent:     event.UserAgent,
			Success:       event.Success,
			FailureReason: event.Details,
			Metadata:      event.Metadata,
		})
	}

	if s.mirror == nil {
		return
	}

	select {
	case s.queue <- event:
	default:
		// Queue full; drop rather than block the primary flow
		s.dropped.Add(1)
		metrics.MirrorDropped.Inc()
		s.logger.Warn("event mirror queue full, dropping event",
			slog.String("event_type", event.Type))
	}
}

func (s *SecurityEventService) mirrorWorker(ctx context.Context) {
	defer s.wg.Done()

	for event := range s.queue {
		if s.publishWithRetry(ctx, &event) {
			s.published.Add(1)
			metrics.MirrorPublished.Inc()
		} else {
			s.dropped.Add(1)
			metrics.MirrorDropped.Inc()
			s.logger.Warn("failed to mirror security event after retries",
				slog.String("event_type", event.Type),
				slog.String("event_id", event.ID))
		}
	}
}

func (s *SecurityEventService) publishWithRetry(ctx context.Context, event *models.SecurityEvent) bool {
	for attempt := 0; attempt <= s.config.Retries; attempt++ {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.mirror.Append(writeCtx, event)
		cancel()

		if err == nil {
			return true
		}

		s.logger.Debug("event mirror write failed",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))

		if attempt == s.config.Retries {
			break
		}

		select {
		case <-time.After(s.config.RetryDelay):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

// FailureCountSince returns the number of failed or suspicious events with
// timestamps at or after t. Used by the escalation sweep.
func (s *SecurityEventService) FailureCountSince(t time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.ring {
		if e.IsFailure() && !e.Timestamp.Before(t) {
			count++
		}
	}
	return count
}

// Recent returns up to n events, newest first
func (s *SecurityEventService) Recent(n int) []models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.ring) {
		n = len(s.ring)
	}

	out := make([]models.SecurityEvent, n)
	for i := 0; i < n; i++ {
		out[i] = s.ring[len(s.ring)-1-i]
	}
	return out
}

// TotalCount returns the number of events currently retained
func (s *SecurityEventService) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ring)
}

// MirrorStats reports delivery counters for the outbound queue
func (s *SecurityEventService) MirrorStats() (published, dropped int64) {
	return s.published.Load(), s.dropped.Load()
}
