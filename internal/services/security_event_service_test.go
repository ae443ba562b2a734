package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hostall/hostguard/internal/models"
	"github.com/hostall/hostguard/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventService(mirror services.SecurityEventMirror, config services.SecurityEventConfig) *services.SecurityEventService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewSecurityEventService(mirror, nil, config, logger, nil)
}

func TestSecurityEvents_RecordFillsIDAndTimestamp(t *testing.T) {
	svc := newTestEventService(nil, services.SecurityEventConfig{RingSize: 10})

	svc.Record(models.SecurityEvent{Type: models.EventLoginFailed, Success: false})

	recent := svc.Recent(1)
	require.Len(t, recent, 1)
	assert.NotEmpty(t, recent[0].ID)
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestSecurityEvents_RingEvictsOldest(t *testing.T) {
	svc := newTestEventService(nil, services.SecurityEventConfig{RingSize: 5})

	for i := 0; i < 8; i++ {
		svc.Record(models.SecurityEvent{
			Type:    models.EventLoginFailed,
			Details: string(rune('a' + i)),
			Success: false,
		})
	}

	assert.Equal(t, 5, svc.TotalCount())

	recent := svc.Recent(5)
	require.Len(t, recent, 5)
	assert.Equal(t, "h", recent[0].Details, "newest first")
	assert.Equal(t, "d", recent[4].Details, "the three oldest were evicted")
}

func TestSecurityEvents_RecentClampsToRetained(t *testing.T) {
	svc := newTestEventService(nil, services.SecurityEventConfig{RingSize: 10})

	svc.Record(models.SecurityEvent{Type: models.EventLogout, Success: true})
	svc.Record(models.SecurityEvent{Type: models.EventLoginSuccess, Success: true})

	recent := svc.Recent(50)
	require.Len(t, recent, 2)
	assert.Equal(t, models.EventLoginSuccess, recent[0].Type)
}

func TestSecurityEvents_FailureCountSince(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := services.NewSecurityEventService(nil, nil, services.SecurityEventConfig{RingSize: 10}, logger, func() time.Time {
		return clock
	})

	svc.Record(models.SecurityEvent{Type: models.EventLoginFailed, Success: false})
	svc.Record(models.SecurityEvent{Type: models.EventLoginSuccess, Success: true})
	svc.Record(models.SecurityEvent{Type: models.EventRateLimitExceeded, Success: false})

	clock = clock.Add(2 * time.Hour)
	svc.Record(models.SecurityEvent{Type: models.EventSuspiciousInput, Success: false})

	assert.Equal(t, 3, svc.FailureCountSince(clock.Add(-3*time.Hour)))
	assert.Equal(t, 1, svc.FailureCountSince(clock.Add(-1*time.Hour)))
}

func TestSecurityEvents_MirrorPublishes(t *testing.T) {
	var mu sync.Mutex
	var appended []string
	mirror := &services.MockMirror{
		AppendFunc: func(ctx context.Context, event *models.SecurityEvent) error {
			mu.Lock()
			appended = append(appended, event.Type)
			mu.Unlock()
			return nil
		},
	}

	svc := newTestEventService(mirror, services.SecurityEventConfig{RingSize: 10, QueueSize: 10})
	svc.Start(context.Background())

	svc.Record(models.SecurityEvent{Type: models.EventLoginFailed, Success: false})
	svc.Record(models.SecurityEvent{Type: models.EventLogout, Success: true})
	svc.Stop()

	published, dropped := svc.MirrorStats()
	assert.Equal(t, int64(2), published)
	assert.Equal(t, int64(0), dropped)
	mu.Lock()
	assert.Equal(t, []string{models.EventLoginFailed, models.EventLogout}, appended)
	mu.Unlock()
}

func TestSecurityEvents_MirrorFailureIsCountedNotFatal(t *testing.T) {
	mirror := &services.MockMirror{
		AppendFunc: func(ctx context.Context, event *models.SecurityEvent) error {
			return errors.New("store unavailable")
		},
	}

	svc := newTestEventService(mirror, services.SecurityEventConfig{
		RingSize:   10,
		QueueSize:  10,
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	svc.Start(context.Background())

	svc.Record(models.SecurityEvent{Type: models.EventLoginFailed, Success: false})
	svc.Stop()

	published, dropped := svc.MirrorStats()
	assert.Equal(t, int64(0), published)
	assert.Equal(t, int64(1), dropped)

	// The local ring still has the event
	assert.Equal(t, 1, svc.TotalCount())
}

func TestSecurityEvents_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	// Worker not started, so the queue never drains
	svc := newTestEventService(&services.MockMirror{}, services.SecurityEventConfig{RingSize: 10, QueueSize: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			svc.Record(models.SecurityEvent{Type: models.EventLoginFailed, Success: false})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record must never block on a full mirror queue")
	}

	_, dropped := svc.MirrorStats()
	assert.Equal(t, int64(2), dropped)
	assert.Equal(t, 3, svc.TotalCount())
}
