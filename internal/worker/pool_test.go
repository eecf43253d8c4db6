package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestWorkerTicksOnInterval(t *testing.T) {
	var ticks int64
	p := NewPool([]time.Duration{5 * time.Millisecond}, nil, func(int) bool {
		atomic.AddInt64(&ticks, 1)
		return false
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks) >= 3 })
}

func TestLastActiveNeverDecreases(t *testing.T) {
	p := NewPool([]time.Duration{2 * time.Millisecond}, nil, func(int) bool { return false }, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	prev := p.LastActive(0)
	for i := 0; i < 20; i++ {
		time.Sleep(3 * time.Millisecond)
		cur := p.LastActive(0)
		require.False(t, cur.Before(prev))
		prev = cur
	}
}

func TestActiveReflectsRunIntentUntilStopped(t *testing.T) {
	p := NewPool([]time.Duration{2 * time.Millisecond}, nil, func(int) bool { return false }, nil)
	p.StartWork()
	require.True(t, p.Active(0))

	require.True(t, p.StopWorkOne(0, time.Second))
	require.False(t, p.Active(0))
}

func TestWorkReturningTrueSkipsSleep(t *testing.T) {
	var ticks int64
	p := NewPool([]time.Duration{time.Hour}, nil, func(int) bool {
		atomic.AddInt64(&ticks, 1)
		return true
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks) >= 10 })
}

func TestShuttingDownIsMonotonic(t *testing.T) {
	p := NewPool([]time.Duration{5 * time.Millisecond}, nil, func(int) bool { return true }, nil)
	p.StartWork()
	require.False(t, p.ShuttingDown())
	p.StopWork(time.Second)
	require.True(t, p.ShuttingDown())
}

func TestStopWorkReturnsCleanWhenSlotsExitInTime(t *testing.T) {
	p := NewPool([]time.Duration{time.Millisecond}, nil, func(int) bool { return true }, nil)
	p.StartWork()
	require.True(t, p.StopWork(time.Second))
}

func TestStopWorkReportsUncleanOnStuckWorker(t *testing.T) {
	block := make(chan struct{})
	p := NewPool([]time.Duration{time.Millisecond}, nil, func(int) bool {
		<-block
		return true
	}, nil)
	p.StartWork()
	defer close(block)

	clean := p.StopWork(20 * time.Millisecond)
	require.False(t, clean)
}

func TestRunNowWakesWorkerImmediately(t *testing.T) {
	var ticks int64
	p := NewPool([]time.Duration{time.Hour}, nil, func(int) bool {
		atomic.AddInt64(&ticks, 1)
		return false
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks) == 1 })
	p.RunNow(0)
	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks) == 2 })
}

func TestWorkPanicIsRecoveredAndDoesNotKillWorker(t *testing.T) {
	var ticks int64
	p := NewPool([]time.Duration{5 * time.Millisecond}, nil, func(int) bool {
		n := atomic.AddInt64(&ticks, 1)
		if n == 1 {
			panic("boom")
		}
		return true
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks) >= 2 })
}

func TestNamesDefaultToAIndex(t *testing.T) {
	p := NewPool([]time.Duration{time.Second, time.Second}, nil, nil, nil)
	require.Equal(t, "A0", p.name(0))
	require.Equal(t, "A1", p.name(1))
}

func TestStopWorkOneDoesNotAffectOtherSlots(t *testing.T) {
	var ticks0, ticks1 int64
	p := NewPool([]time.Duration{2 * time.Millisecond, 2 * time.Millisecond}, nil, func(i int) bool {
		if i == 0 {
			atomic.AddInt64(&ticks0, 1)
		} else {
			atomic.AddInt64(&ticks1, 1)
		}
		return false
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks1) >= 1 })
	require.True(t, p.StopWorkOne(0, time.Second))
	require.False(t, p.Running(0))
	require.True(t, p.Running(1))

	snapshot := atomic.LoadInt64(&ticks0)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, snapshot, atomic.LoadInt64(&ticks0))
	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&ticks1) >= 3 })
}

// TestScenarioS1TwoWorkerLiveness mirrors spec scenario S1: with
// intervals scaled down 100x for test speed, Work(0) always returns
// false (normal pacing) and Work(1) always returns true (skip the sleep
// every time), so slot 1 should accumulate far more calls than slot 0
// over the same wall-clock window, and StopWork must still complete
// well within its timeout.
func TestScenarioS1TwoWorkerLiveness(t *testing.T) {
	var calls0, calls1 int64
	p := NewPool([]time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, nil, func(i int) bool {
		if i == 0 {
			atomic.AddInt64(&calls0, 1)
			return false
		}
		atomic.AddInt64(&calls1, 1)
		return true
	}, nil)
	p.StartWork()

	time.Sleep(300 * time.Millisecond)
	require.GreaterOrEqual(t, atomic.LoadInt64(&calls0), int64(2))
	require.GreaterOrEqual(t, atomic.LoadInt64(&calls1), int64(3))

	stopStart := time.Now()
	require.True(t, p.StopWork(time.Second))
	require.Less(t, time.Since(stopStart), time.Second)
}
