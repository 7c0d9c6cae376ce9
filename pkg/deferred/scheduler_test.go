package deferred

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsAfterDelay(t *testing.T) {
	s := NewScheduler()
	t.Cleanup(s.Close)

	var fired atomic.Int32
	s.After(10*time.Millisecond, func() { fired.Add(1) })
	require.Equal(t, 1, s.Pending())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, s.Pending())
}

func TestScheduler_CloseCancelsPending(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	s.After(20*time.Millisecond, func() { fired.Add(1) })
	s.After(30*time.Millisecond, func() { fired.Add(1) })
	s.Close()
	require.Equal(t, 0, s.Pending())

	require.Never(t, func() bool { return fired.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	// scheduling after teardown is a no-op
	cancel := s.After(time.Millisecond, func() { fired.Add(1) })
	cancel()
	require.Never(t, func() bool { return fired.Load() > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestScheduler_CancelSingle(t *testing.T) {
	s := NewScheduler()
	t.Cleanup(s.Close)

	var a, b atomic.Int32
	cancel := s.After(20*time.Millisecond, func() { a.Add(1) })
	s.After(20*time.Millisecond, func() { b.Add(1) })
	cancel()
	cancel()

	require.Eventually(t, func() bool { return b.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(0), a.Load())
}

func TestScheduler_NilIsInert(t *testing.T) {
	var s *Scheduler
	s.After(time.Millisecond, func() { t.Fatal("must not run") })()
	s.Close()
	require.Equal(t, 0, s.Pending())
}
