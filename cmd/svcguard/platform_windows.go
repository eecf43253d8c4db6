//go:build windows

package main

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/loykin/svcguard/internal/scm"
	"github.com/loykin/svcguard/internal/watchdog"
)

func newController(serviceName string) scm.Controller {
	return scm.NewWindowsSCM(serviceName)
}

func newInstaller(serviceName string) scm.Installer {
	return scm.NewWindowsSCM(serviceName)
}

type serviceControllerPeerChecker struct{}

func newPeerChecker() watchdog.PeerChecker { return serviceControllerPeerChecker{} }

func (serviceControllerPeerChecker) IsServiceRunning(ctx context.Context, name string) (watchdog.RunState, error) {
	m, err := mgr.Connect()
	if err != nil {
		return watchdog.StateUnknown, fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return watchdog.StateUnknown, nil
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return watchdog.StateUnknown, fmt.Errorf("query %s: %w", name, err)
	}
	if status.State == svc.Running {
		return watchdog.StateYes, nil
	}
	return watchdog.StateNo, nil
}

func (serviceControllerPeerChecker) StartService(ctx context.Context, name string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to scm: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", name, err)
	}
	defer s.Close()
	return s.Start()
}
