// Package restart implements the Restart Orchestrator: on a threshold
// breach the manager loop hands control here, which materializes a
// detached stop/wait/start script, flips the pool's shutting-down flag,
// drains workers to a bounded deadline, and launches the script in its
// own session so it survives this process exiting. The actual restart
// happens afterward via the SCM's OnStop -> StopWork callback, not here.
//
// Detached-spawn plumbing is grounded on cmd/provisr/daemon_unix.go's
// Setsid attribute and internal/process's PID-file bookkeeping.
package restart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/loykin/svcguard/internal/logger"
	"github.com/loykin/svcguard/internal/scm"
	"github.com/loykin/svcguard/internal/worker"
)

// DrainInterval and DrainAttempts bound the stop-wait loop at ten seconds
// total, per spec §4.3.
const (
	DrainInterval = time.Second
	DrainAttempts = 10
)

// Orchestrator performs a full-process restart by writing and launching a
// detached script that stops, waits for, and restarts the service through
// its SCM (spec §4.3).
type Orchestrator struct {
	ServiceName string
	Controller  scm.Controller
	Pool        *worker.Pool
	Log         logger.Sink

	// ScriptDir overrides where the restart script is written. Empty uses
	// os.TempDir, falling back to os.Getwd on failure, matching spec §9's
	// "prefer temp-dir path, fall back to base dir, logging either way."
	ScriptDir string
}

// Restart writes the orchestration script, drains the pool, and spawns
// the script detached. reason is logged only; it does not change
// behavior.
func (o *Orchestrator) Restart(reason string) error {
	log := o.Log
	if log == nil {
		log = logger.Discard{}
	}
	log.WriteLine("AM: restart orchestration starting (%s)", reason)

	path, err := o.writeScript()
	if err != nil {
		return fmt.Errorf("write restart script: %w", err)
	}

	if o.Pool != nil {
		clean := o.Pool.StopWork(DrainInterval * DrainAttempts)
		if !clean {
			log.WriteLine("AM: drain deadline exceeded, proceeding with restart anyway")
		}
	}

	if err := spawnDetached(path); err != nil {
		return fmt.Errorf("spawn restart script: %w", err)
	}
	log.WriteLine("AM: restart script launched: %s", path)
	return nil
}

func (o *Orchestrator) scriptDir() (string, bool) {
	if o.ScriptDir != "" {
		return o.ScriptDir, true
	}
	if d := os.TempDir(); d != "" {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			return d, true
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", false
	}
	return wd, false
}

func (o *Orchestrator) writeScript() (string, error) {
	dir, usedTemp := o.scriptDir()
	log := o.Log
	if log == nil {
		log = logger.Discard{}
	}
	if usedTemp {
		log.WriteLine("AM: writing restart script under temp dir %s", dir)
	} else {
		log.WriteLine("AM: temp dir unavailable, writing restart script under %s", dir)
	}

	name := scriptName()
	path := filepath.Join(dir, name)
	content := scriptBody(o.ServiceName)
	if err := os.WriteFile(path, []byte(content), 0o700); err != nil {
		return "", err
	}
	return path, nil
}

func scriptName() string {
	if runtime.GOOS == "windows" {
		return "restart.bat"
	}
	return "restart.sh"
}

func scriptBody(serviceName string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("@echo off\r\nsc stop %[1]s\r\n:wait\r\nsc query %[1]s | find \"STOPPED\" >nul\r\nif errorlevel 1 (timeout /t 1 >nul & goto wait)\r\nsc start %[1]s\r\n", serviceName)
	}
	return fmt.Sprintf("#!/bin/sh\nset -e\nservice_name=%q\nsystemctl stop \"$service_name\" || true\nfor i in $(seq 1 %d); do\n  systemctl is-active --quiet \"$service_name\" || break\n  sleep 1\ndone\nsystemctl start \"$service_name\"\n", serviceName, DrainAttempts)
}

func spawnDetached(path string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", path)
	} else {
		cmd = exec.Command("/bin/sh", path)
	}
	configureDetached(cmd)
	return cmd.Start()
}
