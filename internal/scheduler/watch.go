package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ning0612/linksync/internal/logger"
)

// triggerOps are the flag file events that request a pass
const triggerOps = fsnotify.Create | fsnotify.Write | fsnotify.Rename

// WatchScheduler runs a pass whenever the flag file changes.
// Bursts of events within Debounce collapse into one pass; events seen
// while a pass runs schedule exactly one follow-up pass.
type WatchScheduler struct {
	*loop
	config  Config
	flag    string
	watcher *fsnotify.Watcher
}

// NewWatchScheduler creates a scheduler triggered by config.FlagFile
func NewWatchScheduler(config Config, runner PassRunner) (*WatchScheduler, error) {
	if config.FlagFile == "" {
		return nil, fmt.Errorf("flag file cannot be empty")
	}
	if config.Debounce < 0 {
		return nil, fmt.Errorf("debounce cannot be negative, got %v", config.Debounce)
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}

	flag, err := filepath.Abs(config.FlagFile)
	if err != nil {
		return nil, fmt.Errorf("resolving flag file: %w", err)
	}

	l, err := newLoop(runner)
	if err != nil {
		return nil, err
	}

	return &WatchScheduler{loop: l, config: config, flag: flag}, nil
}

// Start begins watching the flag file.
// The parent directory is watched so the flag may be created or replaced.
func (s *WatchScheduler) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.flag)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.flag), err)
	}

	if err := s.begin(time.Time{}); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	logger.Get().Info("watching flag file", "path", s.flag, "debounce", s.config.Debounce)

	go s.run(ctx)
	return nil
}

func (s *WatchScheduler) run(ctx context.Context) {
	defer s.finish()
	defer s.watcher.Close()

	if s.config.RunInitial {
		s.runPass(ctx, time.Time{})
	}

	debounce := time.NewTimer(s.config.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !s.isTrigger(event) {
				continue
			}
			logger.Get().Debug("flag file changed", "op", event.Op.String())
			next := time.Now().Add(s.config.Debounce)
			s.setNext(next)
			debounce.Reset(s.config.Debounce)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Get().Warn("watcher error", "error", err)
		case <-debounce.C:
			s.runPass(ctx, time.Time{})
		}
	}
}

func (s *WatchScheduler) isTrigger(event fsnotify.Event) bool {
	return filepath.Clean(event.Name) == s.flag && event.Op&triggerOps != 0
}

func (s *WatchScheduler) setNext(next time.Time) {
	s.mu.Lock()
	s.stats.nextRunTime = next
	s.mu.Unlock()
}
