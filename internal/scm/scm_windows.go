//go:build windows

package scm

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// WindowsSCM is the real Windows Service Control Manager adapter (spec §1).
type WindowsSCM struct {
	Name string
}

func NewWindowsSCM(name string) *WindowsSCM { return &WindowsSCM{Name: name} }

func (w *WindowsSCM) Install(ctx context.Context, displayName, description string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.Name)
	if err == nil {
		s.Close()
		return fmt.Errorf("service %s already installed", w.Name)
	}

	s, err = m.CreateService(w.Name, exe, mgr.Config{
		DisplayName: displayName,
		Description: description,
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()
	return nil
}

func (w *WindowsSCM) Uninstall(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.Name)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer s.Close()
	return s.Delete()
}

func (w *WindowsSCM) IsInstalled(ctx context.Context) (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.Name)
	if err != nil {
		return false, nil
	}
	defer s.Close()
	return true, nil
}

func (w *WindowsSCM) Start(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.Name)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer s.Close()
	return s.Start()
}

func (w *WindowsSCM) Stop(ctx context.Context) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.Name)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer s.Close()

	status, err := s.Control(svc.Stop)
	if err != nil {
		return fmt.Errorf("send stop control: %w", err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for status.State != svc.Stopped && time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		status, err = s.Query()
		if err != nil {
			return fmt.Errorf("query service: %w", err)
		}
	}
	return nil
}

func (w *WindowsSCM) QueryState(ctx context.Context) (State, error) {
	m, err := mgr.Connect()
	if err != nil {
		return StateUnknown, fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(w.Name)
	if err != nil {
		return StateUnknown, nil
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return StateUnknown, fmt.Errorf("query service: %w", err)
	}
	if status.State == svc.Running {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// windowsHandler adapts Callbacks to svc.Handler, dispatching every
// control request the SCM can send (spec §1's
// OnStart/OnStop/OnPause/OnContinue/OnShutdown/OnPowerEvent/
// OnSessionChange).
type windowsHandler struct {
	cb  Callbacks
	ctx context.Context
}

func (h *windowsHandler) Execute(args []string, r <-chan svc.ChangeRequest, s chan<- svc.Status) (bool, uint32) {
	s <- svc.Status{State: svc.StartPending}
	if h.cb.OnStart != nil {
		if err := h.cb.OnStart(h.ctx); err != nil {
			return true, 1
		}
	}
	accepts := svc.AcceptStop | svc.AcceptShutdown | svc.AcceptPauseAndContinue | svc.AcceptPowerEvent | svc.AcceptSessionChange
	s <- svc.Status{State: svc.Running, Accepts: accepts}

	for req := range r {
		switch req.Cmd {
		case svc.Stop, svc.Shutdown:
			s <- svc.Status{State: svc.StopPending}
			if h.cb.OnStop != nil {
				_ = h.cb.OnStop(h.ctx)
			}
			if req.Cmd == svc.Shutdown && h.cb.OnShutdown != nil {
				_ = h.cb.OnShutdown(h.ctx)
			}
			s <- svc.Status{State: svc.Stopped}
			return false, 0
		case svc.Pause:
			if h.cb.OnPause != nil {
				_ = h.cb.OnPause(h.ctx)
			}
			s <- svc.Status{State: svc.Paused, Accepts: accepts}
		case svc.Continue:
			if h.cb.OnContinue != nil {
				_ = h.cb.OnContinue(h.ctx)
			}
			s <- svc.Status{State: svc.Running, Accepts: accepts}
		case svc.PowerEvent:
			if h.cb.OnPowerEvent != nil {
				_ = h.cb.OnPowerEvent(h.ctx, int(req.EventType))
			}
		case svc.SessionChange:
			if h.cb.OnSessionChange != nil {
				_ = h.cb.OnSessionChange(h.ctx, int(req.EventType))
			}
		default:
			s <- req.CurrentStatus
		}
	}
	return false, 0
}

// WindowsRunner drives svc.Run, the real OS service dispatch loop.
type WindowsRunner struct{}

func (WindowsRunner) Run(ctx context.Context, name string, cb Callbacks) error {
	return svc.Run(name, &windowsHandler{cb: cb, ctx: ctx})
}
