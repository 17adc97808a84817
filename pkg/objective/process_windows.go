//go:build windows

package objective

import "os/exec"

// setProcessGroup is a no-op on windows; process groups in the unix sense
// do not exist there.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the child process itself, best effort.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
