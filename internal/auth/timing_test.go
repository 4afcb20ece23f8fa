package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitsOnFailure(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 20})

	start := time.Now()
	td.Wait(false)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestTimingDelay_NoDelayOnSuccess(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 200})

	start := time.Now()
	td.Wait(true)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 50*time.Millisecond)
}

func TestTimingDelay_ZeroConfigIsNoop(t *testing.T) {
	td := NewTimingDelay(TimingConfig{})

	start := time.Now()
	td.Wait(false)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 50*time.Millisecond)
}
