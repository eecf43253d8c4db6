//go:build windows

package restart

import (
	"os/exec"
	"syscall"
)

// configureDetached launches the script in a new console so it survives
// this process exiting or being stopped by the SCM.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windowsDetachedFlags}
}

const windowsDetachedFlags = 0x00000010 // CREATE_NEW_CONSOLE
