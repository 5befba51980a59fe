// Package lock keeps synchronization passes from overlapping, across
// processes as well as within one.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/Ning0612/linksync/internal/domain"
)

const (
	// LockFileName is the name of the lock file
	LockFileName = "linksync.lock"
	// DefaultStaleTimeout is how long a lock from another host is honoured
	DefaultStaleTimeout = 30 * time.Minute
)

// LockInfo contains metadata about the lock holder
type LockInfo struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartTime time.Time `json:"start_time"`
	PassID    string    `json:"pass_id,omitempty"`
}

// PassLock is a file-based lock held for the duration of one pass
type PassLock struct {
	fs           afero.Fs
	lockPath     string
	staleTimeout time.Duration
	info         *LockInfo
}

// NewPassLock creates a lock stored in lockDir, creating the directory
func NewPassLock(fsys afero.Fs, lockDir string) (*PassLock, error) {
	if lockDir == "" {
		return nil, fmt.Errorf("lock directory cannot be empty")
	}

	if err := fsys.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	return &PassLock{
		fs:           fsys,
		lockPath:     filepath.Join(lockDir, LockFileName),
		staleTimeout: DefaultStaleTimeout,
	}, nil
}

// SetStaleTimeout sets the duration after which a foreign-host lock is stale
func (l *PassLock) SetStaleTimeout(d time.Duration) {
	l.staleTimeout = d
}

// Path returns the lock file location
func (l *PassLock) Path() string {
	return l.lockPath
}

// Acquire takes the lock for passID.
// It fails with a *LockError while any pass, including one started through
// this instance, still holds it.
func (l *PassLock) Acquire(passID string) error {
	if l.info != nil {
		return &LockError{Holder: l.info, Reason: "a pass is already running in this process"}
	}

	// An unreadable lock file may be mid-write; leave it to O_EXCL below
	if existing, err := l.readLockInfo(); err == nil {
		if !l.isStale(existing) {
			return &LockError{Holder: existing, Reason: "lock is held by another process"}
		}
		if err := l.fs.Remove(l.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartTime: time.Now(),
		PassID:    passID,
	}

	// O_EXCL makes creation the single point of arbitration
	file, err := l.fs.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			holder, readErr := l.readLockInfo()
			if readErr != nil {
				return &LockError{Reason: "lock acquired by another process during acquisition"}
			}
			return &LockError{
				Holder: holder,
				Reason: "lock acquired by another process during acquisition",
			}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		l.fs.Remove(l.lockPath)
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release releases the lock if this instance holds it
func (l *PassLock) Release() error {
	if l.info == nil {
		return nil
	}

	existing, err := l.readLockInfo()
	if err != nil {
		l.info = nil
		return nil
	}

	if !l.isHeldByThisInstance(existing) {
		l.info = nil
		return fmt.Errorf("lock was taken over by PID %d (pass %s)", existing.PID, existing.PassID)
	}

	if err := l.fs.Remove(l.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	l.info = nil
	return nil
}

// IsLocked checks if a live lock exists
func (l *PassLock) IsLocked() bool {
	info, err := l.readLockInfo()
	if err != nil {
		return false
	}
	return !l.isStale(info)
}

// GetHolder returns information about the current lock holder
func (l *PassLock) GetHolder() (*LockInfo, error) {
	info, err := l.readLockInfo()
	if err != nil {
		return nil, err
	}
	if l.isStale(info) {
		return nil, fmt.Errorf("lock is stale")
	}
	return info, nil
}

// ForceRelease removes the lock file whoever holds it.
// Only safe when the holder is known to have crashed.
func (l *PassLock) ForceRelease() error {
	if err := l.fs.Remove(l.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to force remove lock: %w", err)
	}
	l.info = nil
	return nil
}

func (l *PassLock) readLockInfo() (*LockInfo, error) {
	data, err := afero.ReadFile(l.fs, l.lockPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}

	return &info, nil
}

// isStale reports whether the holder is gone.
// On the same host that means the process is dead; for another host only
// the timeout can tell.
func (l *PassLock) isStale(info *LockInfo) bool {
	hostname, _ := os.Hostname()

	if info.Hostname == hostname {
		return !processExists(info.PID)
	}

	return time.Since(info.StartTime) > l.staleTimeout
}

func (l *PassLock) isHeldByThisInstance(info *LockInfo) bool {
	if l.info == nil {
		return false
	}
	hostname, _ := os.Hostname()
	return info.PID == os.Getpid() &&
		info.Hostname == hostname &&
		l.info.StartTime.Equal(info.StartTime) &&
		l.info.PassID == info.PassID
}

// LockError represents an error when lock cannot be acquired
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s, pass %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
			e.Holder.PassID,
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

func (e *LockError) Unwrap() error { return domain.ErrPassInProgress }

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}
