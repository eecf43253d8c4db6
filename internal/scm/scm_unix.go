//go:build !windows

package scm

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// UnixSCM stands in for a service manager on platforms without one baked
// into the standard library. Install is a no-op (the caller is expected
// to supply its own unit file via a higher-level tool); Start writes this
// process's PID file, IsInstalled reports whether that file exists, and
// Uninstall removes it. Stop and QueryState work against the recorded
// process (group) by signal,
// matching cmd/provisr/daemon_unix.go's process-group conventions.
type UnixSCM struct {
	PIDFile string
}

func NewUnixSCM(pidFile string) *UnixSCM { return &UnixSCM{PIDFile: pidFile} }

func (u *UnixSCM) Install(ctx context.Context, displayName, description string) error {
	return nil
}

func (u *UnixSCM) Uninstall(ctx context.Context) error {
	return os.Remove(u.PIDFile)
}

func (u *UnixSCM) IsInstalled(ctx context.Context) (bool, error) {
	_, err := os.Stat(u.PIDFile)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (u *UnixSCM) readPID() (int, error) {
	b, err := os.ReadFile(u.PIDFile)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(b), "%d", &pid); err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func (u *UnixSCM) Start(ctx context.Context) error {
	return os.WriteFile(u.PIDFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
}

// Stop signals the process group so every worker goroutine's host process
// receives the request, matching the detached restart script's
// stop-then-wait pattern (internal/restart).
func (u *UnixSCM) Stop(ctx context.Context) error {
	pid, err := u.readPID()
	if err != nil {
		return fmt.Errorf("read pid file: %w", err)
	}
	if err := unix.Kill(-pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process group %d: %w", pid, err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if unix.Kill(pid, 0) != nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	return os.Remove(u.PIDFile)
}

func (u *UnixSCM) QueryState(ctx context.Context) (State, error) {
	pid, err := u.readPID()
	if err != nil {
		if os.IsNotExist(err) {
			return StateStopped, nil
		}
		return StateUnknown, err
	}
	if unix.Kill(pid, 0) == nil {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// UnixRunner drives Callbacks directly in-process, since there is no OS
// service dispatch loop to hook into outside Windows: it calls OnStart,
// blocks until ctx is cancelled, then calls OnStop. It installs no signal
// handlers and never calls OnPause, OnContinue, OnShutdown, OnPowerEvent
// or OnSessionChange.
type UnixRunner struct{}

func (UnixRunner) Run(ctx context.Context, name string, cb Callbacks) error {
	if cb.OnStart != nil {
		if err := cb.OnStart(ctx); err != nil {
			return err
		}
	}
	<-ctx.Done()
	if cb.OnStop != nil {
		return cb.OnStop(context.Background())
	}
	return nil
}
