// Package metrics wires prometheus collectors for the ambient stack
// (worker liveness, timer dispatch cost, restart counts, watchdog
// actions) plus a Monitor that reads the host's own process for
// CheckMemory/CheckThread (manager.Limits).
//
// Grounded on the teacher's metrics.go collector set and naming
// conventions (Namespace/Subsystem/Name, idempotent Register), narrowed
// from per-managed-process labels to this process's own self-monitoring,
// and on process_metrics.go's gopsutil usage, narrowed from many tracked
// child PIDs to a single os.Getpid() target. Metrics are reachable only
// through the prometheus.Registerer hook passed to Register: svcguard
// never starts its own HTTP server for them (spec's RPC-server
// Non-goal).
package metrics

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds every prometheus metric svcguard exposes. Register
// wires them into a caller-supplied Registerer; nothing here starts an
// HTTP server. No svcguard package increments or sets these collectors:
// the host creates and registers them only.
type Collectors struct {
	registered atomic.Bool

	WorkerTicks      *prometheus.CounterVec
	WorkerUnhealthy  *prometheus.CounterVec
	WorkerLastActive *prometheus.GaugeVec
	TimerCostMs      *prometheus.HistogramVec
	TimerFires       *prometheus.CounterVec
	RestartsTotal    *prometheus.CounterVec
	WatchdogActions  *prometheus.CounterVec
}

// New builds the collector set under the given namespace (SPEC_FULL.md
// §6's MetricsNamespace, default "svcguard").
func New(namespace string) *Collectors {
	if namespace == "" {
		namespace = "svcguard"
	}
	return &Collectors{
		WorkerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "worker", Name: "ticks_total",
			Help: "Number of completed Work(i) dispatches per slot.",
		}, []string{"slot"}),
		WorkerUnhealthy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "worker", Name: "unhealthy_total",
			Help: "Number of Work(i) dispatches that reported false.",
		}, []string{"slot"}),
		WorkerLastActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "worker", Name: "last_active_unixtime",
			Help: "Unix timestamp of the slot's last active transition.",
		}, []string{"slot"}),
		TimerCostMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "timer", Name: "dispatch_cost_ms",
			Help:    "Observed timer callback dispatch cost in milliseconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scheduler"}),
		TimerFires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "timer", Name: "fires_total",
			Help: "Number of timer dispatches per scheduler.",
		}, []string{"scheduler"}),
		RestartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "manager", Name: "restarts_total",
			Help: "Number of full-process restarts triggered, by reason.",
		}, []string{"reason"}),
		WatchdogActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "watchdog", Name: "actions_total",
			Help: "Number of peer services the watchdog issued a start command to.",
		}, []string{"peer"}),
	}
}

// Register registers every collector with r. Safe to call more than
// once; an AlreadyRegisteredError from a prior call is ignored.
func (c *Collectors) Register(r prometheus.Registerer) error {
	if c.registered.Load() {
		return nil
	}
	all := []prometheus.Collector{
		c.WorkerTicks, c.WorkerUnhealthy, c.WorkerLastActive,
		c.TimerCostMs, c.TimerFires, c.RestartsTotal, c.WatchdogActions,
	}
	for _, coll := range all {
		if err := r.Register(coll); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	c.registered.Store(true)
	return nil
}
