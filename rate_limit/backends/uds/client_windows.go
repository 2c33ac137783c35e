//go:build windows

package uds

import (
	"os/exec"
	"syscall"
)

// managerCommand builds the detached "<self> rate-limiter" process.
func managerCommand(execPath, socketPath string) *exec.Cmd {
	cmd := exec.Command(execPath, "rate-limiter", "--socket", socketPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | syscall.DETACHED_PROCESS,
	}
	return cmd
}
