//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

// processExists sends signal 0 to pid
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	// EPERM: alive, owned by someone else
	return err == nil || errors.Is(err, syscall.EPERM)
}
