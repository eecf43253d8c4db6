//go:build !windows

package main

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/loykin/svcguard/internal/scm"
	"github.com/loykin/svcguard/internal/watchdog"
)

func pidFilePath(name string) string {
	return filepath.Join("/var/run", name+".pid")
}

func newController(serviceName string) scm.Controller {
	return scm.NewUnixSCM(pidFilePath(serviceName))
}

func newInstaller(serviceName string) scm.Installer {
	return scm.NewUnixSCM(pidFilePath(serviceName))
}

// systemctlPeerChecker shells out to systemctl to check/start peer OS
// services, matching watchdog.PeerChecker. There is no Go library for
// systemd unit control beyond invoking systemctl itself, so this uses
// os/exec directly, same as the teacher's daemon helpers do for process
// launch.
type systemctlPeerChecker struct{}

func newPeerChecker() watchdog.PeerChecker { return systemctlPeerChecker{} }

func (systemctlPeerChecker) IsServiceRunning(ctx context.Context, name string) (watchdog.RunState, error) {
	cmd := exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", name)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			_ = exitErr
			return watchdog.StateNo, nil
		}
		return watchdog.StateUnknown, fmt.Errorf("query %s: %w", name, err)
	}
	return watchdog.StateYes, nil
}

func (systemctlPeerChecker) StartService(ctx context.Context, name string) error {
	return exec.CommandContext(ctx, "systemctl", "start", name).Run()
}
