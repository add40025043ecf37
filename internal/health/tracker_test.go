package health

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestUnknownEndpointsAreAvailable(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	got := tr.AvailableReplicas("s0", []string{"r1", "r2"})
	require.Equal(t, []string{"r1", "r2"}, got)
}

func TestUnhealthyExcludedUntilRecoveryDelay(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(time.Minute, clock.Now)

	tr.MarkUnhealthy("s0", "r1")
	require.Equal(t, []string{"r2"}, tr.AvailableReplicas("s0", []string{"r1", "r2"}))
	require.False(t, tr.IsAvailable("s0", "r1"))

	clock.Advance(59 * time.Second)
	require.Equal(t, []string{"r2"}, tr.AvailableReplicas("s0", []string{"r1", "r2"}))

	// At exactly T+D the replica becomes eligible again.
	clock.Advance(time.Second)
	require.Equal(t, []string{"r1", "r2"}, tr.AvailableReplicas("s0", []string{"r1", "r2"}))
	require.True(t, tr.IsAvailable("s0", "r1"))
}

func TestMarkHealthyResetsUnhealthyState(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(time.Hour, clock.Now)

	tr.MarkUnhealthy("s0", "r1")
	require.Empty(t, tr.AvailableReplicas("s0", []string{"r1"}))

	tr.MarkHealthy("s0", "r1")
	require.Equal(t, []string{"r1"}, tr.AvailableReplicas("s0", []string{"r1"}))
}

func TestHealthIsPerShard(t *testing.T) {
	tr := NewTracker(time.Hour, nil)
	tr.MarkUnhealthy("s0", "r1")

	require.Empty(t, tr.AvailableReplicas("s0", []string{"r1"}))
	require.Equal(t, []string{"r1"}, tr.AvailableReplicas("s1", []string{"r1"}))
}

func TestReMarkRestartsRecoveryWindow(t *testing.T) {
	clock := newFakeClock()
	tr := NewTracker(time.Minute, clock.Now)

	tr.MarkUnhealthy("s0", "r1")
	clock.Advance(time.Minute)
	require.True(t, tr.IsAvailable("s0", "r1"))

	tr.MarkUnhealthy("s0", "r1")
	clock.Advance(30 * time.Second)
	require.False(t, tr.IsAvailable("s0", "r1"))
}

func TestConcurrentMarking(t *testing.T) {
	tr := NewTracker(time.Minute, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					tr.MarkUnhealthy("s0", "r1")
				} else {
					tr.MarkHealthy("s0", "r1")
				}
				tr.AvailableReplicas("s0", []string{"r1", "r2"})
			}
		}(i)
	}
	wg.Wait()
	// r2 was never marked; it must always stay available.
	require.Contains(t, tr.AvailableReplicas("s0", []string{"r1", "r2"}), "r2")
}
