//go:build unix

package audit

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes cancellation kill Lighthouse together with the
// Chrome it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
