// Package svcguard is the public facade over the supervised
// multi-worker execution engine: construct a Host from Settings, start
// it, and it runs the worker pool, manager loop, timer scheduler, and
// watchdog until told to stop.
//
// Grounded on the teacher's provisr.go: a thin facade re-exporting
// internal types as aliases so conversions stay zero-cost, narrowed from
// a multi-process supervisor's public API down to this single-host
// surface.
package svcguard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/svcguard/internal/config"
	"github.com/loykin/svcguard/internal/logger"
	"github.com/loykin/svcguard/internal/manager"
	"github.com/loykin/svcguard/internal/metrics"
	"github.com/loykin/svcguard/internal/restart"
	"github.com/loykin/svcguard/internal/scm"
	"github.com/loykin/svcguard/internal/timer"
	"github.com/loykin/svcguard/internal/watchdog"
	"github.com/loykin/svcguard/internal/worker"
)

// Re-exported types for external consumers.
type (
	Settings    = config.Settings
	Pool        = worker.Pool
	WorkerFunc  = worker.Func
	Manager     = manager.Manager
	Thresholds  = manager.Thresholds
	Scheduler   = timer.Scheduler
	Timer       = timer.Timer
	Collectors  = metrics.Collectors
	Controller  = scm.Controller
	Installer   = scm.Installer
	PeerChecker = watchdog.PeerChecker
)

// Host wires every component described by the system overview into one
// runnable unit: worker pool, manager loop, default timer scheduler,
// watchdog, and metrics.
type Host struct {
	Settings *Settings
	Pool     *Pool
	Manager  *Manager
	Timers   *timer.Registry
	Metrics  *Collectors

	log logger.Sink
}

// New constructs a Host from Settings and a Work callback. peerChecker
// may be nil if Settings.WatchDog is empty. limits may be nil to use
// metrics.NewMonitor's self-process reader.
func New(s *Settings, work WorkerFunc, peerChecker PeerChecker, limits manager.Limits, restarter manager.Orchestrator, baseLog *slog.Logger) (*Host, error) {
	if baseLog == nil {
		baseLog = logger.New(logger.FileConfig{Path: s.LogFile}, true)
	}
	sink := logger.Named(baseLog, "AM")

	names := s.ThreadNames
	pool := worker.NewPool(s.Intervals, names, work, logger.Named(baseLog, "worker"))

	if limits == nil {
		m, err := metrics.NewMonitor()
		if err != nil {
			return nil, fmt.Errorf("build self-process monitor: %w", err)
		}
		limits = m
	}

	var guard manager.Guard
	if peerChecker != nil {
		guard = watchdog.New(s.WatchDog, peerChecker, logger.Named(baseLog, "watchdog"))
	}

	if restarter == nil {
		restarter = &restart.Orchestrator{
			ServiceName: s.ServiceName,
			Pool:        pool,
			Log:         logger.Named(baseLog, "restart"),
		}
	}

	th := Thresholds{
		MaxActiveSilence: s.MaxActive,
		MaxMemoryBytes:   s.MaxMemory,
		MaxThreads:       s.MaxThread,
		AutoRestart:      s.AutoRestart,
	}
	mgr := manager.New(pool, limits, guard, restarter, th, sink, time.Minute)

	return &Host{
		Settings: s,
		Pool:     pool,
		Manager:  mgr,
		Timers:   timer.NewRegistry(),
		Metrics:  metrics.New(s.MetricsNamespace),
		log:      sink,
	}, nil
}

// RegisterMetrics wires the host's prometheus collectors into r, never
// starting an HTTP server of its own (spec's RPC-server Non-goal).
func (h *Host) RegisterMetrics(r prometheus.Registerer) error {
	return h.Metrics.Register(r)
}

// RegisterMetricsDefault registers against prometheus.DefaultRegisterer.
func (h *Host) RegisterMetricsDefault() error {
	return h.RegisterMetrics(prometheus.DefaultRegisterer)
}

// Start launches the worker pool and the manager's supervisor loop.
func (h *Host) Start(ctx context.Context) {
	h.Pool.StartWork()
	go h.Manager.Run(ctx)
}

// Stop drains the worker pool cooperatively and stops the manager loop.
func (h *Host) Stop(ctx context.Context, drain time.Duration) error {
	h.Pool.StopWork(drain)
	return h.Manager.Shutdown(ctx)
}

// Scheduler returns (lazily constructing) the named timer scheduler.
func (h *Host) Scheduler(name string) *Scheduler {
	return h.Timers.Get(name)
}

// NewWeakCallback builds a weak-referenced timer callback (spec §4.6) to
// pass to a Scheduler's timer constructors.
func NewWeakCallback[T any](target *T, fn func(t *T, state any)) timer.WeakCallback {
	return timer.NewWeakCallback(target, fn)
}

// NewStaticCallback wires a callback with no lifetime-bound target.
func NewStaticCallback(fn func(state any)) timer.WeakCallback {
	return timer.NewStaticCallback(fn)
}

// LoadConfig reads Settings from a TOML/YAML/JSON file.
func LoadConfig(path string) (*Settings, error) {
	return config.Load(path)
}
