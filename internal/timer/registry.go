package timer

import "sync"

// Registry lazily constructs and caches named schedulers, guarding
// construction with a one-shot primitive per spec §9: "Global state...
// guard construction with a one-shot primitive." The zero value is ready
// to use; DefaultRegistry is the process-wide instance most callers want.
type Registry struct {
	mu         sync.Mutex
	schedulers map[string]*Scheduler
	pool       *Pool
}

// NewRegistry constructs an empty Registry. Its schedulers discard their
// log lines and share DefaultPool.
func NewRegistry() *Registry {
	return &Registry{schedulers: make(map[string]*Scheduler)}
}

// Get returns the named scheduler, constructing and starting it on first
// reference. Subsequent calls with the same name return the same
// *Scheduler (spec §3: schedulers are process-wide and never recreated).
func (r *Registry) Get(name string) *Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schedulers == nil {
		r.schedulers = make(map[string]*Scheduler)
	}
	if s, ok := r.schedulers[name]; ok {
		return s
	}
	s := NewScheduler(name, nil, r.pool)
	s.Start()
	r.schedulers[name] = s
	return s
}

// Names returns every scheduler name constructed so far, for status
// reporting.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.schedulers))
	for n := range r.schedulers {
		out = append(out, n)
	}
	return out
}

// DefaultSchedulerName is the name used when callers don't care to
// segregate their timers onto a dedicated scheduler.
const DefaultSchedulerName = "Default"

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the process-wide scheduler registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
