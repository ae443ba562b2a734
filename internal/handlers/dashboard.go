package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	pkghttp "github.com/hostall/hostguard/pkg/http"
)

const (
	defaultRecentEvents = 50
	maxRecentEvents     = 500
)

// DashboardHandler serves the security dashboard for authenticated admins
type DashboardHandler struct {
	events     *services.SecurityEventService
	limiter    *services.RateLimitService
	escalation *services.EscalationService
	sessions   *services.SessionService
	window     time.Duration
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(
	events *services.SecurityEventService,
	limiter *services.RateLimitService,
	escalation *services.EscalationService,
	sessions *services.SessionService,
	window time.Duration,
) *DashboardHandler {
	return &DashboardHandler{
		events:     events,
		limiter:    limiter,
		escalation: escalation,
		sessions:   sessions,
		window:     window,
	}
}

// DashboardResponse is the security dashboard payload
type DashboardResponse struct {
	TotalEvents    int                               `json:"total_events"`
	RecentFailures int                               `json:"recent_failures"`
	FailureWindow  string                            `json:"failure_window"`
	ActiveSessions int                               `json:"active_sessions"`
	Escalation     EscalationStatus                  `json:"escalation"`
	Policies       map[string]models.RateLimitPolicy `json:"policies"`
	Mirror         MirrorStatus                      `json:"mirror"`
	RecentEvents   []models.SecurityEvent            `json:"recent_events"`
}

// EscalationStatus reports whether tightened limits are in effect
type EscalationStatus struct {
	Active      bool       `json:"active"`
	ActiveUntil *time.Time `json:"active_until,omitempty"`
}

// MirrorStatus reports delivery health of the async event mirror
type MirrorStatus struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}

// GetDashboard returns the current security posture: recent events, live
// sessions, rate-limit policies, and escalation state.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	limit := defaultRecentEvents
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRecentEvents {
			pkghttp.WriteBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	active, activeUntil := h.escalation.Active()
	escalation := EscalationStatus{Active: active}
	if active {
		escalation.ActiveUntil = &activeUntil
	}

	published, dropped := h.events.MirrorStats()

	writeJSON(w, http.StatusOK, DashboardResponse{
		TotalEvents:    h.events.TotalCount(),
		RecentFailures: h.events.FailureCountSince(time.Now().Add(-h.window)),
		FailureWindow:  h.window.String(),
		ActiveSessions: h.sessions.ActiveCount(),
		Escalation:     escalation,
		Policies:       h.limiter.Policies(),
		Mirror:         MirrorStatus{Published: published, Dropped: dropped},
		RecentEvents:   h.events.Recent(limit),
	})
}
