// Package daemon tracks the running watcher through a PID file.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotRunning indicates no live watcher owns the PID file
var ErrNotRunning = errors.New("watcher is not running")

// PIDFile manages the watcher process ID file
type PIDFile struct {
	fs   afero.Fs
	path string
}

// NewPIDFile creates a PID file manager for path
func NewPIDFile(fsys afero.Fs, path string) *PIDFile {
	return &PIDFile{fs: fsys, path: path}
}

// Path returns the PID file location
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current process, replacing a stale file
func (p *PIDFile) Write() error {
	if running, _ := p.IsRunning(); running {
		pid, _ := p.Read()
		return fmt.Errorf("watcher is already running (PID %d, file %s)", pid, p.path)
	}

	if err := p.fs.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	content := strconv.Itoa(os.Getpid()) + "\n"
	if err := afero.WriteFile(p.fs, p.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// Read reads the PID from the PID file
func (p *PIDFile) Read() (int, error) {
	content, err := afero.ReadFile(p.fs, p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: no PID file at %s", ErrNotRunning, p.path)
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %q", pidStr)
	}

	return pid, nil
}

// Remove deletes the PID file if it still names this process
func (p *PIDFile) Remove() error {
	pid, err := p.Read()
	if err == nil && pid != os.Getpid() {
		return nil
	}

	if err := p.fs.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks if the process in the PID file is alive
func (p *PIDFile) IsRunning() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		return false, err
	}

	return isProcessRunning(pid), nil
}

// Signal asks the recorded watcher to shut down
func (p *PIDFile) Signal() (int, error) {
	pid, err := p.Read()
	if err != nil {
		return 0, err
	}
	if !isProcessRunning(pid) {
		return pid, fmt.Errorf("%w: PID %d is gone", ErrNotRunning, pid)
	}

	return pid, stopProcess(pid)
}
