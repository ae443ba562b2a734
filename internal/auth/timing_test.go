package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_EnforcesMinimumOnFailure(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 50})

	start := time.Now()
	td.WaitFrom(start, false)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_NoDelayOnSuccess(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 500})

	start := time.Now()
	td.WaitFrom(start, true)

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTimingDelay_CountsElapsedWork(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 50})

	// Work that already took longer than the target adds no extra wait
	start := time.Now().Add(-200 * time.Millisecond)
	before := time.Now()
	td.WaitFrom(start, false)

	assert.Less(t, time.Since(before), 40*time.Millisecond)
}
