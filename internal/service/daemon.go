package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"

	"github.com/Ning0612/linksync/internal/config"
	"github.com/Ning0612/linksync/internal/daemon"
	"github.com/Ning0612/linksync/internal/logger"
	"github.com/Ning0612/linksync/internal/scheduler"
	"github.com/Ning0612/linksync/internal/state"
)

// DaemonService runs passes on a trigger until stopped
type DaemonService struct {
	mu        sync.RWMutex
	config    *config.Config
	scheduler scheduler.Scheduler
	syncSvc   *SyncService
	stateMgr  *state.Manager
	pidFile   *daemon.PIDFile
}

// DaemonStatus represents the current daemon status
type DaemonStatus struct {
	Running        bool
	SchedulerStats *scheduler.Status
	LastPass       *state.PassRecord
}

// NewDaemonService creates a daemon around syncSvc.
// stateMgr may be nil when history is not kept.
func NewDaemonService(cfg *config.Config, syncSvc *SyncService, stateMgr *state.Manager) (*DaemonService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if syncSvc == nil {
		return nil, fmt.Errorf("sync service cannot be nil")
	}

	return &DaemonService{
		config:   cfg,
		syncSvc:  syncSvc,
		stateMgr: stateMgr,
		pidFile:  daemon.NewPIDFile(afero.NewOsFs(), cfg.PIDPath()),
	}, nil
}

// Start writes the PID file and starts the scheduler described by schedCfg
func (d *DaemonService) Start(ctx context.Context, schedCfg scheduler.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler != nil {
		return fmt.Errorf("daemon is already running")
	}

	sched, err := scheduler.New(schedCfg, d.syncSvc)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := d.pidFile.Write(); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		d.pidFile.Remove()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	d.scheduler = sched
	logger.Get().Info("daemon started", "mode", schedCfg.Mode, "pid_file", d.pidFile.Path())
	return nil
}

// Done is closed when the scheduler loop exits; nil if not started
func (d *DaemonService) Done() <-chan struct{} {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.scheduler == nil {
		return nil
	}
	return d.scheduler.Done()
}

// Stop stops the scheduler, waiting for a running pass, and removes the PID file
func (d *DaemonService) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.scheduler == nil {
		return fmt.Errorf("daemon is not running")
	}

	// The loop may already have exited on context cancellation
	select {
	case <-d.scheduler.Done():
	default:
		if err := d.scheduler.Stop(); err != nil {
			return fmt.Errorf("failed to stop scheduler: %w", err)
		}
	}

	d.scheduler = nil
	if err := d.pidFile.Remove(); err != nil {
		return err
	}

	logger.Get().Info("daemon stopped")
	return nil
}

// Status returns the current daemon status
func (d *DaemonService) Status() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := &DaemonStatus{
		Running: d.scheduler != nil,
	}

	if d.scheduler != nil {
		status.SchedulerStats = d.scheduler.Status()
	}

	if d.stateMgr != nil {
		history, err := d.stateMgr.History(1)
		if err == nil && len(history) > 0 {
			status.LastPass = &history[0]
		}
	}

	return status
}

// Close stops the daemon if it is running
func (d *DaemonService) Close() error {
	d.mu.RLock()
	running := d.scheduler != nil
	d.mu.RUnlock()

	if !running {
		return nil
	}
	return d.Stop()
}
