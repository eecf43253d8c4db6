//go:build !windows

package restart

import (
	"os/exec"
	"syscall"
)

// configureDetached puts the spawned script in its own session (Setsid)
// so it keeps running after this process exits, matching
// cmd/provisr/daemon_unix.go's daemon attributes.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
