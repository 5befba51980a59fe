// Package scheduler decides when synchronization passes run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/linksync/internal/logger"
)

// Scheduling modes
const (
	ModeInterval = "interval"
	ModeWatch    = "watch"
)

// DefaultDebounce is how long a watch trigger waits for events to settle
const DefaultDebounce = 500 * time.Millisecond

// Scheduler defines the interface for pass schedulers
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop() error

	// Done is closed once the scheduling loop has exited
	Done() <-chan struct{}

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Config contains scheduler configuration
type Config struct {
	// Mode specifies the scheduling mode ("interval" or "watch")
	Mode string

	// Interval specifies the duration between passes (interval mode)
	Interval time.Duration

	// FlagFile is the file whose changes trigger a pass (watch mode)
	FlagFile string

	// Debounce coalesces bursts of flag file events (watch mode)
	Debounce time.Duration

	// RunInitial runs one pass as soon as the scheduler starts
	RunInitial bool
}

// PassRunner is the interface that schedulers use to execute passes
type PassRunner interface {
	// RunPass executes one complete synchronization pass
	RunPass(ctx context.Context) error
}

// New creates the scheduler selected by config.Mode
func New(config Config, runner PassRunner) (Scheduler, error) {
	switch config.Mode {
	case ModeInterval:
		return NewIntervalScheduler(config, runner)
	case ModeWatch:
		return NewWatchScheduler(config, runner)
	default:
		return nil, fmt.Errorf("unknown scheduler mode: %q", config.Mode)
	}
}

// loop holds the lifecycle and statistics shared by all schedulers
type loop struct {
	runner PassRunner

	mu          sync.RWMutex
	running     bool
	stopped     bool      // set once the loop exits; schedulers are single-use
	stopOnce    sync.Once // Stop() is idempotent
	closeOnce   sync.Once // stoppedChan is closed exactly once
	stopChan    chan struct{}
	stoppedChan chan struct{}

	stats struct {
		lastRunTime    time.Time
		nextRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		lastError      string
	}
}

func newLoop(runner PassRunner) (*loop, error) {
	if runner == nil {
		return nil, fmt.Errorf("pass runner cannot be nil")
	}
	return &loop{
		runner:      runner,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}, nil
}

// begin marks the loop running; callers hold no locks
func (l *loop) begin(next time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("scheduler is already running")
	}
	if l.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	l.running = true
	l.stats.nextRunTime = next
	return nil
}

// finish is deferred by the loop goroutine
func (l *loop) finish() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.running = false
		l.mu.Unlock()
		close(l.stoppedChan)
	})
}

// runPass executes one pass and records its outcome.
// A failed pass is logged; the scheduler keeps going.
func (l *loop) runPass(ctx context.Context, next time.Time) {
	l.mu.Lock()
	l.stats.lastRunTime = time.Now()
	l.stats.totalRuns++
	l.stats.nextRunTime = next
	l.mu.Unlock()

	err := l.runner.RunPass(ctx)

	l.mu.Lock()
	if err != nil {
		l.stats.failedRuns++
		l.stats.lastError = err.Error()
	} else {
		l.stats.successfulRuns++
		l.stats.lastError = ""
	}
	l.mu.Unlock()

	if err != nil {
		logger.Get().Error("scheduled pass failed", "error", err)
	}
}

// Stop gracefully stops the scheduler and waits for the loop to exit
func (l *loop) Stop() error {
	l.mu.RLock()
	if !l.running {
		l.mu.RUnlock()
		return fmt.Errorf("scheduler is not running")
	}
	l.mu.RUnlock()

	l.stopOnce.Do(func() {
		close(l.stopChan)
	})

	<-l.stoppedChan
	return nil
}

// Done is closed once the loop has exited
func (l *loop) Done() <-chan struct{} {
	return l.stoppedChan
}

// Status returns the current scheduler status
func (l *loop) Status() *Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return &Status{
		Running:        l.running,
		LastRunTime:    l.stats.lastRunTime,
		NextRunTime:    l.stats.nextRunTime,
		TotalRuns:      l.stats.totalRuns,
		SuccessfulRuns: l.stats.successfulRuns,
		FailedRuns:     l.stats.failedRuns,
		LastError:      l.stats.lastError,
	}
}
