//go:build unix

package uds

import (
	"os/exec"
	"syscall"
)

// managerCommand builds the detached "<self> rate-limiter" process. Setsid
// keeps the manager alive after the gateway that spawned it exits.
func managerCommand(execPath, socketPath string) *exec.Cmd {
	cmd := exec.Command(execPath, "rate-limiter", "--socket", socketPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd
}
