// Package manager implements the self-healing management loop: a single
// supervisor goroutine that runs an ordered set of checks once a minute
// over a worker.Pool, escalating to a full process restart when a
// threshold is breached.
//
// The control-plane channel pattern (CtrlMsg/CtrlType feeding one run
// loop) is grounded on the teacher's handler.go, generalized from
// per-process start/stop control to the manager's own
// check-now/watchdog-now/shutdown operations.
package manager

import (
	"context"
	"time"

	"github.com/loykin/svcguard/internal/logger"
	"github.com/loykin/svcguard/internal/restart"
	"github.com/loykin/svcguard/internal/watchdog"
	"github.com/loykin/svcguard/internal/worker"
)

// CtrlType enumerates control messages accepted by Manager.run.
type CtrlType int

const (
	CtrlCheckNow CtrlType = iota
	CtrlWatchdogNow
	CtrlShutdown
)

// CtrlMsg is a control-plane message serialized through Manager's single
// run loop, same shape as the pool's operator-facing actions.
type CtrlMsg struct {
	Type  CtrlType
	Reply chan error
}

// Thresholds holds the limits spec §6 exposes as configuration.
type Thresholds struct {
	MaxActiveSilence time.Duration // CheckActive: how long a slot may stay inactive before it's stuck
	MaxMemoryBytes   uint64        // CheckMemory: 0 disables
	MaxThreads       int32         // CheckThread: 0 disables
	AutoRestart      time.Duration // CheckAutoRestart: 0 disables uptime-based restart
}

// Limits is the self-monitoring interface the Manager polls every cycle.
// internal/metrics.Monitor implements it against the host's own process.
type Limits interface {
	MemoryBytes() (uint64, error)
	ThreadCount() (int32, error)
}

// Orchestrator is the Restart Orchestrator collaborator (internal/restart).
type Orchestrator interface {
	Restart(reason string) error
}

// Guard is the Watchdog collaborator (internal/watchdog).
type Guard interface {
	CheckOnce(ctx context.Context) error
}

// Manager is the supervisor goroutine described in spec §4.2.
type Manager struct {
	pool       *worker.Pool
	limits     Limits
	guard      Guard
	restarter  Orchestrator
	thresholds Thresholds
	log        logger.Sink
	interval   time.Duration

	startedAt time.Time
	ctrl      chan CtrlMsg
	done      chan struct{}
}

// New constructs a Manager. interval<=0 defaults to one minute, matching
// spec §4.2's "once per minute" cadence.
func New(pool *worker.Pool, limits Limits, guard Guard, restarter Orchestrator, th Thresholds, log logger.Sink, interval time.Duration) *Manager {
	if log == nil {
		log = logger.Discard{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Manager{
		pool:       pool,
		limits:     limits,
		guard:      guard,
		restarter:  restarter,
		thresholds: th,
		log:        log,
		interval:   interval,
		ctrl:       make(chan CtrlMsg, 8),
		done:       make(chan struct{}),
	}
}

// Run starts the supervisor loop and blocks until ctx is cancelled or a
// CtrlShutdown message is handled.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	m.startedAt = time.Now()
	t := time.NewTicker(m.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.ctrl:
			m.dispatch(ctx, msg)
			if msg.Type == CtrlShutdown {
				return
			}
		case <-t.C:
			m.runChecks(ctx)
		}
	}
}

// CheckNow requests an out-of-cycle pass over the ordered checks and
// waits for it to complete.
func (m *Manager) CheckNow(ctx context.Context) error {
	return m.send(ctx, CtrlMsg{Type: CtrlCheckNow})
}

// CheckWatchDogNow requests an immediate watchdog pass (console menu 7 /
// SPEC_FULL.md §7's exported trigger), independent of the minute cadence.
func (m *Manager) CheckWatchDogNow(ctx context.Context) error {
	return m.send(ctx, CtrlMsg{Type: CtrlWatchdogNow})
}

// Shutdown stops the run loop.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.send(ctx, CtrlMsg{Type: CtrlShutdown})
}

func (m *Manager) send(ctx context.Context, msg CtrlMsg) error {
	msg.Reply = make(chan error, 1)
	select {
	case m.ctrl <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-msg.Reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) dispatch(ctx context.Context, msg CtrlMsg) {
	var err error
	switch msg.Type {
	case CtrlCheckNow:
		m.runChecks(ctx)
	case CtrlWatchdogNow:
		err = m.checkWatchDog(ctx)
	case CtrlShutdown:
	}
	if msg.Reply != nil {
		msg.Reply <- err
	}
}

// runChecks performs the ordered pass spec §4.2 describes: CheckActive,
// CheckMemory, CheckThread, CheckAutoRestart, then CheckWatchDog
// fire-and-forget. CheckActive restarts individual stuck or dead workers
// in place and never escalates; only CheckMemory, CheckThread, and
// CheckAutoRestart trigger a full process restart, which ends this pass.
// Run does not exit after a restart: it keeps ticking until ctx is
// cancelled or Shutdown is called.
func (m *Manager) runChecks(ctx context.Context) {
	if restarted := m.CheckActive(); len(restarted) > 0 {
		m.log.WriteLine("AM: restarted stuck/dead workers %v", restarted)
	}
	if over, err := m.CheckMemory(); err != nil {
		m.log.WriteLine("AM: memory check error: %v", err)
	} else if over {
		m.log.WriteLine("AM: memory threshold exceeded, restarting")
		m.triggerRestart("memory threshold")
		return
	}
	if over, err := m.CheckThread(); err != nil {
		m.log.WriteLine("AM: thread check error: %v", err)
	} else if over {
		m.log.WriteLine("AM: thread threshold exceeded, restarting")
		m.triggerRestart("thread threshold")
		return
	}
	if due := m.CheckAutoRestart(); due {
		m.log.WriteLine("AM: auto-restart interval elapsed, restarting")
		m.triggerRestart("auto-restart interval")
		return
	}
	go func() {
		if err := m.checkWatchDog(ctx); err != nil {
			m.log.WriteLine("AM: watchdog check error: %v", err)
		}
	}()
}

// restartJoinWait bounds how long CheckActive waits for a stopped worker
// to join before relaunching it, per spec §4.2: "StopWork(i), wait ≤ 5 s
// for join, then StartWork(i)."
const restartJoinWait = 5 * time.Second

// CheckActive restarts, in place, any worker slot whose goroutine has
// terminated unexpectedly while the pool is still running, and any slot
// whose last-active timestamp is older than MaxActiveSilence (spec
// §4.2's stuck/dead-worker detection). It returns the indices restarted.
// Unlike CheckMemory/CheckThread/CheckAutoRestart, this never escalates
// to a full process restart: the Manager Loop continues afterward.
func (m *Manager) CheckActive() []int {
	if m.pool == nil || m.pool.ShuttingDown() {
		return nil
	}
	var restarted []int
	now := time.Now()
	for i := 0; i < m.pool.ThreadCount; i++ {
		if !m.pool.Active(i) {
			continue // never started, or stopped intentionally
		}
		if !m.pool.Running(i) {
			m.pool.StartWorkOne(i)
			restarted = append(restarted, i)
			continue
		}
		if m.thresholds.MaxActiveSilence > 0 && now.Sub(m.pool.LastActive(i)) > m.thresholds.MaxActiveSilence {
			m.pool.StopWorkOne(i, restartJoinWait)
			m.pool.StartWorkOne(i)
			restarted = append(restarted, i)
		}
	}
	return restarted
}

// CheckMemory reports whether the host process's own memory footprint
// exceeds MaxMemoryBytes (spec §4.2, ambient §4 gopsutil self-process
// read). A zero threshold disables the check.
func (m *Manager) CheckMemory() (bool, error) {
	if m.thresholds.MaxMemoryBytes == 0 || m.limits == nil {
		return false, nil
	}
	bytes, err := m.limits.MemoryBytes()
	if err != nil {
		return false, err
	}
	return bytes > m.thresholds.MaxMemoryBytes, nil
}

// CheckThread reports whether the host process's own OS thread count
// exceeds MaxThreads. A zero threshold disables the check.
func (m *Manager) CheckThread() (bool, error) {
	if m.thresholds.MaxThreads == 0 || m.limits == nil {
		return false, nil
	}
	n, err := m.limits.ThreadCount()
	if err != nil {
		return false, err
	}
	return n > m.thresholds.MaxThreads, nil
}

// CheckAutoRestart reports whether the configured uptime ceiling has
// elapsed since the manager started. A zero duration disables the check.
func (m *Manager) CheckAutoRestart() bool {
	if m.thresholds.AutoRestart <= 0 {
		return false
	}
	return time.Since(m.startedAt) >= m.thresholds.AutoRestart
}

func (m *Manager) checkWatchDog(ctx context.Context) error {
	if m.guard == nil {
		return nil
	}
	return m.guard.CheckOnce(ctx)
}

func (m *Manager) triggerRestart(reason string) {
	if m.restarter == nil {
		m.log.WriteLine("AM: no restart orchestrator configured, ignoring %s", reason)
		return
	}
	if err := m.restarter.Restart(reason); err != nil {
		m.log.WriteLine("AM: restart orchestration failed: %v", err)
	}
}

var (
	_ Guard        = (*watchdog.Watchdog)(nil)
	_ Orchestrator = (*restart.Orchestrator)(nil)
)
