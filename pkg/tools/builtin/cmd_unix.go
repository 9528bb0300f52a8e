//go:build !windows

package builtin

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Commands run in their own process group so the whole tree can be killed.
func platformSpecificSysProcAttr() *syscall.SysProcAttr {
	return &unix.SysProcAttr{
		Setpgid: true,
	}
}

func kill(proc *os.Process) error {
	return unix.Kill(-proc.Pid, unix.SIGKILL)
}

func defaultShell() (string, []string) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, []string{"-c"}
}
