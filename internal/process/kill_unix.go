//go:build !windows

// Package process controls the lifetime of external renderer processes.
package process

import (
	"os/exec"
	"syscall"
)

// Configure places cmd in its own process group and makes context
// cancellation kill the whole group, so renderer child processes (the JVM
// may fork helpers) do not outlive the request.
func Configure(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		KillProcessGroup(cmd.Process.Pid)
		return nil
	}
}

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) {
	// Best-effort; Wait reports the outcome
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
