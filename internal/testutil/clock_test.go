package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtStart(t *testing.T) {
	clock := NewManualClock(250)
	assert.Equal(t, 250.0, clock.Now())
}

func TestManualClock_AdvanceAccumulates(t *testing.T) {
	clock := NewManualClock(0)

	assert.Equal(t, 16.0, clock.Advance(16))
	assert.Equal(t, 32.0, clock.Advance(16))
	assert.Equal(t, 32.0, clock.Now())
}

func TestManualClock_NeverRunsBackwards(t *testing.T) {
	clock := NewManualClock(100)

	clock.Advance(-50)
	assert.Equal(t, 100.0, clock.Now())

	clock.Set(40)
	assert.Equal(t, 100.0, clock.Now(), "Set to an earlier time is ignored")

	clock.Set(400)
	assert.Equal(t, 400.0, clock.Now())
}

func TestManualClock_Reset(t *testing.T) {
	clock := NewManualClock(0)
	clock.Advance(500)

	clock.Reset()
	assert.Equal(t, 0.0, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(0)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Advance(1)
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float64(numGoroutines*callsPerGoroutine), clock.Now())
}
