// Package timer implements the non-reentrant timer scheduler described in
// spec §4.5: one dedicated goroutine per named scheduler dispatches an
// ordered set of timers, each either relative (anchored to completion of
// its previous dispatch) or absolute (anchored to a calendar instant with
// drift-free advance), optionally offloaded to a shared async pool.
//
// Grounded on internal/cron's per-job goroutine + atomic non-overlap flag
// (cron.Job.running), generalized here to many timers sharing one
// scheduler goroutine with a single computed sleep, as spec §4.5 requires.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/svcguard/internal/clock"
	"github.com/loykin/svcguard/internal/logger"
)

// Timer is a single scheduled callback (spec §3).
type Timer struct {
	id         int64
	scheduler  *Scheduler
	callback   WeakCallback
	state      any
	async      bool
	absolutely bool
	canExecute func() bool

	mu          sync.Mutex
	nextTime    time.Time
	period      time.Duration // period<=0 means one-shot
	absNext     time.Time
	hasSetNext  bool
	costMs      int64
	timersFired int64

	calling atomic.Bool
}

// ID returns the timer's scheduler-unique identifier.
func (t *Timer) ID() int64 { return t.id }

// TimersFired returns the rolling count of completed dispatches.
func (t *Timer) TimersFired() int64 { return atomic.LoadInt64(&t.timersFired) }

// CostMs returns the rolling-average dispatch cost in milliseconds.
func (t *Timer) CostMs() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.costMs
}

// SetNext overrides the next dispatch time to now+ms (spec §4.5) and wakes
// the owning scheduler so it can re-evaluate its sleep window.
func (t *Timer) SetNext(ms time.Duration) {
	t.mu.Lock()
	t.nextTime = clock.Real().Add(ms)
	t.hasSetNext = true
	t.mu.Unlock()
	t.scheduler.wakeNow()
}

// Dispose removes the timer from its scheduler synchronously. A currently
// executing dispatch, if any, completes and is then discarded (spec §5).
func (t *Timer) Dispose() {
	t.scheduler.remove(t.id)
}

func (t *Timer) due(now time.Time) bool {
	t.mu.Lock()
	nt := t.nextTime
	t.mu.Unlock()
	if now.Before(nt) {
		return false
	}
	if t.canExecute != nil && !t.canExecute() {
		return false
	}
	return true
}

func (t *Timer) sleepBudget(now time.Time) time.Duration {
	t.mu.Lock()
	nt := t.nextTime
	t.mu.Unlock()
	d := nt.Sub(now)
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}

// setAndGetNextTime advances the timer per spec §4.5's SetAndGetNextTime
// and returns the wait until the new next time. execute discards that
// value; the scheduler recomputes the minimum sleep from all timers after
// every dispatch cycle.
func (t *Timer) setAndGetNextTime(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasSetNext {
		t.hasSetNext = false
		return t.nextTime.Sub(now)
	}
	if t.absolutely {
		t.absNext = t.absNext.Add(t.period)
		t.nextTime = t.absNext
		return t.nextTime.Sub(now)
	}
	t.nextTime = now.Add(t.period)
	return t.period
}

func (t *Timer) oneShotDone() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period <= 0 && !t.hasSetNext
}

func (t *Timer) recordCost(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ms := elapsed.Milliseconds()
	if t.costMs == 0 {
		t.costMs = ms
	} else {
		// EWMA with alpha=0.2, matching the rolling-average cost described
		// in spec §3 without requiring a full sample history.
		t.costMs = (t.costMs*4 + ms) / 5
	}
	t.timersFired++
}

// Scheduler runs one dedicated goroutine dispatching all timers registered
// on it, plus offloads async=true timers to a shared Pool.
type Scheduler struct {
	name string
	log  logger.Sink
	pool *Pool

	mu      sync.Mutex
	timers  map[int64]*Timer
	nextID  int64
	started bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewScheduler constructs a named scheduler. It does not start its
// goroutine until Start is called; Registry.Get starts schedulers
// automatically on first reference, per spec §3's lifecycle rules.
func NewScheduler(name string, log logger.Sink, pool *Pool) *Scheduler {
	if log == nil {
		log = logger.Discard{}
	}
	if pool == nil {
		pool = DefaultPool()
	}
	return &Scheduler{
		name:   name,
		log:    log,
		pool:   pool,
		timers: make(map[int64]*Timer),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Name returns the scheduler's registry name.
func (s *Scheduler) Name() string { return s.name }

// Start launches the scheduler goroutine. Safe to call multiple times.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.loop()
}

// Stop ends the scheduler goroutine; registered timers are left as-is
// (schedulers are process-wide and never destroyed per spec §3/§9, but
// tests need a deterministic stop).
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

func (s *Scheduler) wakeNow() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// newTimer is the shared constructor behind NewRelative/NewAbsolute/Delay.
func (s *Scheduler) newTimer(cb WeakCallback, state any, period time.Duration, async, absolutely bool, first time.Time, canExecute func() bool) *Timer {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	t := &Timer{
		id:         id,
		scheduler:  s,
		callback:   cb,
		state:      state,
		async:      async,
		absolutely: absolutely,
		canExecute: canExecute,
		nextTime:   first,
		period:     period,
	}
	if absolutely {
		t.absNext = first
	}
	s.mu.Lock()
	s.timers[id] = t
	s.mu.Unlock()
	s.wakeNow()
	return t
}

// NewRelative registers a timer whose next fire, after each dispatch, is
// measured from the completion of the previous one (spec's "Relative
// timer"). A period<=0 makes it one-shot.
func (s *Scheduler) NewRelative(cb WeakCallback, state any, period time.Duration, async bool, canExecute func() bool) *Timer {
	return s.newTimer(cb, state, period, async, false, clock.Real().Add(period), canExecute)
}

// NewAbsolute registers a timer anchored to startTime whose subsequent
// fires are exact multiples of period from that instant, with no drift
// accumulation across skipped ticks (spec's "Absolute timer").
func (s *Scheduler) NewAbsolute(cb WeakCallback, state any, startTime time.Time, period time.Duration, async bool, canExecute func() bool) *Timer {
	return s.newTimer(cb, state, period, async, true, startTime, canExecute)
}

// Delay constructs a one-shot async timer firing after ms (spec's Delay).
func (s *Scheduler) Delay(cb WeakCallback, ms time.Duration) *Timer {
	return s.newTimer(cb, nil, 0, true, false, clock.Real().Add(ms), nil)
}

func (s *Scheduler) remove(id int64) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()
}

func (s *Scheduler) snapshot() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Timer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t)
	}
	return out
}

const defaultIdleSleep = 5 * time.Second

func (s *Scheduler) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		now := clock.Real()
		timers := s.snapshot()
		var due []*Timer
		minSleep := defaultIdleSleep
		for _, t := range timers {
			if !t.callback.Alive() {
				s.remove(t.id)
				continue
			}
			if t.due(now) {
				due = append(due, t)
				continue
			}
			if b := t.sleepBudget(now); b < minSleep {
				minSleep = b
			}
		}

		if len(due) == 0 {
			timer := time.NewTimer(minSleep)
			select {
			case <-s.stop:
				timer.Stop()
				return
			case <-s.wake:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		for _, t := range due {
			s.execute(t, now)
		}
	}
}

// execute runs Execute(t, now) from spec §4.5 step by step.
func (s *Scheduler) execute(t *Timer, now time.Time) {
	if !t.calling.CompareAndSwap(false, true) {
		// Non-reentrancy guard: only matters for async timers whose
		// previous dispatch has not completed (spec §4.5 step 1).
		return
	}
	if !t.callback.Alive() {
		t.calling.Store(false)
		s.remove(t.id)
		return
	}

	dispatch := func() {
		start := clock.Real()
		defer func() {
			if r := recover(); r != nil {
				s.log.WriteLine("timer %d panicked: %v", t.id, r)
			}
			elapsed := clock.Real().Sub(start)
			t.recordCost(elapsed)
			t.setAndGetNextTime(clock.Real())
			t.calling.Store(false)
			if t.oneShotDone() {
				s.remove(t.id)
			}
			s.wakeNow()
		}()
		t.callback.Invoke(t.state)
	}

	if t.async {
		s.pool.Submit(dispatch)
	} else {
		dispatch()
	}
}
