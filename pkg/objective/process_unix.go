//go:build !windows

package objective

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes the child the leader of a fresh process group so
// the whole group can be reaped on cancellation.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup delivers SIGKILL to the child's process group. ESRCH
// means the group already exited and is not an error.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
