//go:build unix

package toolrun

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolate starts the program in its own process group so a timeout reaches
// the children it spawned (dtrace helpers, shells running sleep, ...).
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return signalGroup(cmd, unix.SIGTERM)
	}
}

// reap kills whatever is left of the program's group after it timed out.
func reap(cmd *exec.Cmd) {
	_ = signalGroup(cmd, unix.SIGKILL)
}

func signalGroup(cmd *exec.Cmd, sig unix.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
