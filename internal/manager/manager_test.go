package manager

import (
	"context"
	"os"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loykin/svcguard/internal/restart"
	"github.com/loykin/svcguard/internal/worker"
)

type fakeLimits struct {
	memBytes uint64
	threads  int32
	err      error
}

func (f *fakeLimits) MemoryBytes() (uint64, error) { return f.memBytes, f.err }
func (f *fakeLimits) ThreadCount() (int32, error)  { return f.threads, f.err }

type fakeGuard struct{ calls int32 }

func (g *fakeGuard) CheckOnce(context.Context) error {
	atomic.AddInt32(&g.calls, 1)
	return nil
}

type fakeRestarter struct {
	calls  int32
	reason string
}

func (r *fakeRestarter) Restart(reason string) error {
	atomic.AddInt32(&r.calls, 1)
	r.reason = reason
	return nil
}

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

func TestCheckActiveRestartsStuckWorkerInPlace(t *testing.T) {
	block := make(chan struct{})
	p := worker.NewPool([]time.Duration{time.Hour}, nil, func(int) bool { <-block; return false }, nil)
	p.StartWork()

	time.Sleep(5 * time.Millisecond) // let the worker go stale past the threshold
	go func() {
		time.Sleep(5 * time.Millisecond)
		close(block) // let the stuck Work call return so StopWorkOne's join succeeds
	}()

	m := New(p, nil, nil, nil, Thresholds{MaxActiveSilence: time.Millisecond}, nil, time.Hour)
	require.Equal(t, []int{0}, m.CheckActive())
	require.True(t, p.Active(0))
	require.True(t, p.StopWork(time.Second))
}

func TestCheckActiveRestartsDeadWorker(t *testing.T) {
	var calls int64
	p := worker.NewPool([]time.Duration{5 * time.Millisecond}, nil, func(int) bool {
		if atomic.AddInt64(&calls, 1) == 1 {
			runtime.Goexit() // simulates an unrecoverable runtime failure, not a panic
		}
		return false
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	waitFor(t, time.Second, func() bool { return !p.Running(0) })
	require.True(t, p.Active(0), "active flag stays true: nobody requested a stop")

	m := New(p, nil, nil, nil, Thresholds{}, nil, time.Hour)
	require.Equal(t, []int{0}, m.CheckActive())
	waitFor(t, time.Second, func() bool { return p.Running(0) })
}

func TestCheckActiveDisabledWhenThresholdZero(t *testing.T) {
	p := worker.NewPool([]time.Duration{time.Hour}, nil, func(int) bool { return true }, nil)
	p.StartWork()
	defer p.StopWork(time.Second)
	m := New(p, nil, nil, nil, Thresholds{}, nil, time.Hour)
	require.Empty(t, m.CheckActive())
}

func TestCheckActiveSkipsSlotsNeverStarted(t *testing.T) {
	p := worker.NewPool([]time.Duration{time.Millisecond}, nil, func(int) bool { return true }, nil)
	m := New(p, nil, nil, nil, Thresholds{MaxActiveSilence: time.Nanosecond}, nil, time.Hour)
	require.Empty(t, m.CheckActive())
}

func TestCheckMemoryExceedsThreshold(t *testing.T) {
	m := New(nil, &fakeLimits{memBytes: 200}, nil, nil, Thresholds{MaxMemoryBytes: 100}, nil, time.Hour)
	over, err := m.CheckMemory()
	require.NoError(t, err)
	require.True(t, over)
}

func TestCheckMemoryUnderThreshold(t *testing.T) {
	m := New(nil, &fakeLimits{memBytes: 50}, nil, nil, Thresholds{MaxMemoryBytes: 100}, nil, time.Hour)
	over, err := m.CheckMemory()
	require.NoError(t, err)
	require.False(t, over)
}

func TestCheckThreadExceedsThreshold(t *testing.T) {
	m := New(nil, &fakeLimits{threads: 500}, nil, nil, Thresholds{MaxThreads: 100}, nil, time.Hour)
	over, err := m.CheckThread()
	require.NoError(t, err)
	require.True(t, over)
}

func TestCheckAutoRestartDueAfterInterval(t *testing.T) {
	m := New(nil, nil, nil, nil, Thresholds{AutoRestart: 10 * time.Millisecond}, nil, time.Hour)
	m.startedAt = time.Now().Add(-20 * time.Millisecond)
	require.True(t, m.CheckAutoRestart())
}

func TestCheckAutoRestartDisabledWhenZero(t *testing.T) {
	m := New(nil, nil, nil, nil, Thresholds{}, nil, time.Hour)
	m.startedAt = time.Now().Add(-time.Hour)
	require.False(t, m.CheckAutoRestart())
}

// TestScenarioS2HungWorkerRestart mirrors spec scenario S2 (with
// MaxActive and the check cadence scaled down for test speed): the
// first Work call hangs past MaxActiveSilence; once the Manager's
// periodic check notices the staleness, it restarts the slot in place
// (never escalating to the Restart Orchestrator), and a second Work
// call runs shortly after.
func TestScenarioS2HungWorkerRestart(t *testing.T) {
	var calls int64
	hang := make(chan struct{})
	p := worker.NewPool([]time.Duration{5 * time.Millisecond}, nil, func(int) bool {
		if atomic.AddInt64(&calls, 1) == 1 {
			<-hang
		}
		return false
	}, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	restarter := &fakeRestarter{}
	m := New(p, nil, nil, restarter, Thresholds{MaxActiveSilence: 10 * time.Millisecond}, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(40 * time.Millisecond)
	close(hang)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt64(&calls) >= 2 })
	require.EqualValues(t, 0, atomic.LoadInt32(&restarter.calls))
}

// TestScenarioS3MemoryRestart mirrors spec scenario S3: exceeding
// MaxMemoryBytes on a single Manager tick produces a restart script file
// (via the real Restart Orchestrator, not a fake) and leaves the pool
// shutting down.
func TestScenarioS3MemoryRestart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("script launch uses cmd /C on windows; writeScript is covered in internal/restart")
	}
	p := worker.NewPool([]time.Duration{5 * time.Millisecond}, nil, func(int) bool { return false }, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	dir := t.TempDir()
	orch := &restart.Orchestrator{ServiceName: "svcguard-s3", Pool: p, ScriptDir: dir}

	m := New(p, &fakeLimits{memBytes: 500}, nil, orch, Thresholds{MaxMemoryBytes: 100}, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitFor(t, time.Second, func() bool { return p.ShuttingDown() })

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestRunTriggersRestartOnMemoryThreshold(t *testing.T) {
	restarter := &fakeRestarter{}
	m := New(nil, &fakeLimits{memBytes: 500}, nil, restarter, Thresholds{MaxMemoryBytes: 100}, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&restarter.calls) >= 1 })
	require.Equal(t, "memory threshold", restarter.reason)
}

func TestCheckNowRunsOutOfCycle(t *testing.T) {
	p := worker.NewPool([]time.Duration{time.Hour}, nil, func(int) bool { return true }, nil)
	p.StartWork()
	defer p.StopWork(time.Second)

	guard := &fakeGuard{}
	m := New(p, nil, guard, nil, Thresholds{}, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.NoError(t, m.CheckNow(ctx))
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&guard.calls) >= 1 })
}

func TestCheckWatchDogNowInvokesGuard(t *testing.T) {
	guard := &fakeGuard{}
	m := New(nil, nil, guard, nil, Thresholds{}, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.NoError(t, m.CheckWatchDogNow(ctx))
	require.EqualValues(t, 1, atomic.LoadInt32(&guard.calls))
}

func TestShutdownStopsRunLoop(t *testing.T) {
	m := New(nil, nil, nil, nil, Thresholds{}, nil, time.Hour)
	ctx := context.Background()
	go m.Run(ctx)

	require.NoError(t, m.Shutdown(ctx))
	waitFor(t, time.Second, func() bool {
		select {
		case <-m.done:
			return true
		default:
			return false
		}
	})
}
