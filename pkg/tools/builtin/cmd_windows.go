package builtin

import (
	"os"
	"os/exec"
	"syscall"
)

func platformSpecificSysProcAttr() *syscall.SysProcAttr {
	return nil
}

func kill(proc *os.Process) error {
	return proc.Kill()
}

func defaultShell() (string, []string) {
	if path, err := exec.LookPath("pwsh.exe"); err == nil {
		return path, []string{"-NoProfile", "-NonInteractive", "-Command"}
	}
	if comspec := os.Getenv("ComSpec"); comspec != "" {
		return comspec, []string{"/C"}
	}
	return "cmd.exe", []string{"/C"}
}
