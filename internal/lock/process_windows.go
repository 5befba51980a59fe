//go:build windows

package lock

import "os"

// processExists checks if a process with the given PID exists.
// FindProcess opens a handle on Windows and fails for unknown PIDs.
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	process.Release()
	return true
}
