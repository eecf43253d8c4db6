// Package scm models the external Service Control Manager collaborator
// (spec §1): the thing that installs, starts, stops, and dispatches
// OnStart/OnStop callbacks to this process. On Windows this is backed by
// golang.org/x/sys/windows/svc and svc/mgr; elsewhere a process-group
// signalling stand-in plays the same role for local testing and for
// non-Windows deployments supervised by an external init system.
package scm

import "context"

// State mirrors the handful of states a caller ever needs to branch on.
type State int

const (
	StateUnknown State = iota
	StateStopped
	StateRunning
)

// Installer registers or removes the process from the host's service
// manager (spec §1's install/uninstall operations).
type Installer interface {
	Install(ctx context.Context, displayName, description string) error
	Uninstall(ctx context.Context) error
	IsInstalled(ctx context.Context) (bool, error)
}

// Controller starts, stops, and queries the service's run state.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	QueryState(ctx context.Context) (State, error)
}

// Callbacks is what Run dispatches into as the SCM drives the service's
// lifecycle (spec §1: OnStart/OnStop and friends).
type Callbacks struct {
	OnStart         func(ctx context.Context) error
	OnStop          func(ctx context.Context) error
	OnPause         func(ctx context.Context) error
	OnContinue      func(ctx context.Context) error
	OnShutdown      func(ctx context.Context) error
	OnPowerEvent    func(ctx context.Context, event int) error
	OnSessionChange func(ctx context.Context, event int) error
}

// Runner blocks for the lifetime of the service, invoking Callbacks as
// the host SCM requests state transitions. Interactive/debug console
// callers invoke Callbacks directly instead of going through a Runner.
type Runner interface {
	Run(ctx context.Context, name string, cb Callbacks) error
}
