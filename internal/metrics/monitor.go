package metrics

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Monitor reads resource usage of the host's own process, implementing
// manager.Limits. Workers here are in-process goroutines, not spawned
// children, so unlike the teacher's per-child process_metrics.go this
// always targets os.Getpid().
type Monitor struct {
	proc *process.Process
}

// NewMonitor opens a gopsutil handle to the current process.
func NewMonitor() (*Monitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open self process handle: %w", err)
	}
	return &Monitor{proc: p}, nil
}

// MemoryBytes returns the process's resident set size. On platforms
// where gopsutil's process-level reader is unavailable it falls back to
// a host-wide read (spec's ambient gopsutil/v4/mem fallback).
func (m *Monitor) MemoryBytes() (uint64, error) {
	info, err := m.proc.MemoryInfo()
	if err == nil && info != nil {
		return info.RSS, nil
	}
	vm, memErr := mem.VirtualMemory()
	if memErr != nil {
		return 0, fmt.Errorf("read process memory (%v) and host memory (%w)", err, memErr)
	}
	return vm.Used, nil
}

// ThreadCount returns the process's current OS thread count.
func (m *Monitor) ThreadCount() (int32, error) {
	n, err := m.proc.NumThreads()
	if err != nil {
		return 0, fmt.Errorf("read thread count: %w", err)
	}
	return n, nil
}
