package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hostall/hostguard/internal/metrics"
	"github.com/hostall/hostguard/internal/models"
)

// EventRecorder receives security events from guard components
type EventRecorder interface {
	Record(event models.SecurityEvent)
}

// RateLimitService enforces per-action sliding-window attempt caps. All
// state is in-memory; the authoritative lockout lives in the credential
// store, this limiter only throttles the client-facing surface.
type RateLimitService struct {
	mu       sync.Mutex
	policies map[string]models.RateLimitPolicy
	defaults map[string]models.RateLimitPolicy
	attempts map[string][]time.Time
	events   EventRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewRateLimitService creates a new RateLimitService. A nil nowFn means
// the wall clock; tests inject a virtual clock.
func NewRateLimitService(policies map[string]models.RateLimitPolicy, events EventRecorder, logger *slog.Logger, nowFn func() time.Time) *RateLimitService {
	if nowFn == nil {
		nowFn = time.Now
	}

	defaults := make(map[string]models.RateLimitPolicy, len(policies))
	active := make(map[string]models.RateLimitPolicy, len(policies))
	for action, p := range policies {
		defaults[action] = p
		active[action] = p
	}

	return &RateLimitService{
		policies: active,
		defaults: defaults,
		attempts: make(map[string][]time.Time),
		events:   events,
		logger:   logger,
		now:      nowFn,
	}
}

func attemptKey(action, identifier string) string {
	return action + "|" + identifier
}

// policyFor returns the policy for an action, falling back to general for
// unknown actions. Caller must hold s.mu.
func (s *RateLimitService) policyFor(action string) (string, models.RateLimitPolicy) {
	if p, ok := s.policies[action]; ok {
		return action, p
	}
	return models.ActionGeneral, s.policies[models.ActionGeneral]
}

// Check applies the sliding window for (action, identifier). Allowed
// attempts are recorded; refused attempts are not, so repeated refusals do
// not extend the wait.
func (s *RateLimitService) Check(action, identifier string) models.RateLimitDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, policy := s.policyFor(action)
	now := s.now()
	cutoff := now.Add(-policy.Window)

	key := attemptKey(action, identifier)
	log := s.attempts[key]

	kept := log[:0]
	for _, t := range log {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	log = kept

	if len(log) >= policy.Max {
		s.attempts[key] = log

		// Wait until the oldest surviving attempt falls out of the window
		retryAfter := log[0].Add(policy.Window).Sub(now)
		decision := models.RateLimitDecision{
			Allowed:    false,
			RetryAfter: retryAfter,
		}
		decision.Message = fmt.Sprintf("too many %s attempts, retry in %d minutes", action, decision.RetryAfterMinutes())

		s.logger.Warn("rate limit exceeded",
			slog.String("action", action),
			slog.Int("attempts", len(log)),
			slog.Duration("retry_after", retryAfter))
		metrics.RateLimitRefusals.WithLabelValues(action).Inc()

		if s.events != nil {
			s.events.Record(models.SecurityEvent{
				Type:      models.EventRateLimitExceeded,
				UserEmail: identifier,
				Success:   false,
				Details:   decision.Message,
				Metadata:  map[string]string{"action": action},
			})
		}

		return decision
	}

	log = append(log, now)
	s.attempts[key] = log

	return models.RateLimitDecision{Allowed: true}
}

// Clear discards the attempt log for (action, identifier), e.g. after a
// successful login.
func (s *RateLimitService) Clear(action, identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, _ = s.policyFor(action)
	delete(s.attempts, attemptKey(action, identifier))
}

// Cleanup purges attempt logs whose every entry has aged out of its
// window. Run periodically by the background monitor.
func (s *RateLimitService) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, log := range s.attempts {
		live := false
		for _, t := range log {
			if window := s.windowForKey(key); t.After(now.Add(-window)) {
				live = true
				break
			}
		}
		if !live {
			delete(s.attempts, key)
			removed++
		}
	}
	return removed
}

// windowForKey resolves the window for a stored key. Caller must hold s.mu.
func (s *RateLimitService) windowForKey(key string) time.Duration {
	for action, p := range s.policies {
		if len(key) > len(action) && key[:len(action)] == action && key[len(action)] == '|' {
			return p.Window
		}
	}
	return s.policies[models.ActionGeneral].Window
}

// TightenFromDefaults clamps an action's Max to its default minus the
// decrement, never below the floor. Applying it repeatedly yields the same
// result, so re-escalation is idempotent.
func (s *RateLimitService) TightenFromDefaults(action string, decrement, floor int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.defaults[action]
	if !ok {
		return
	}

	tightened := def.Max - decrement
	if tightened < floor {
		tightened = floor
	}

	p := s.policies[action]
	p.Max = tightened
	p.Window = def.Window
	s.policies[action] = p

	s.logger.Warn("rate limit policy tightened",
		slog.String("action", action),
		slog.Int("max", tightened))
}

// RestoreDefaults reverts all policies to their configured values
func (s *RateLimitService) RestoreDefaults() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for action, p := range s.defaults {
		s.policies[action] = p
	}

	s.logger.Info("rate limit policies restored to defaults")
}

// Policies returns a snapshot of the active policies for the dashboard
func (s *RateLimitService) Policies() map[string]models.RateLimitPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]models.RateLimitPolicy, len(s.policies))
	for action, p := range s.policies {
		snapshot[action] = p
	}
	return snapshot
}
