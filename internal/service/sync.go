// Package service orchestrates synchronization passes and the watch daemon.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Ning0612/linksync/internal/cachetree"
	"github.com/Ning0612/linksync/internal/config"
	"github.com/Ning0612/linksync/internal/domain"
	"github.com/Ning0612/linksync/internal/linker"
	"github.com/Ning0612/linksync/internal/lock"
	"github.com/Ning0612/linksync/internal/logger"
	"github.com/Ning0612/linksync/internal/metrics"
	"github.com/Ning0612/linksync/internal/progress"
	"github.com/Ning0612/linksync/internal/state"
)

// PassSummary describes a finished pass
type PassSummary struct {
	ID           string
	StartTime    time.Time
	EndTime      time.Time
	Linked       []string
	Skipped      map[domain.SkipReason]int
	PathMaps     int
	CacheEntries int
}

// SkippedTotal returns skipped files for all reasons
func (s *PassSummary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// SyncService runs synchronization passes
type SyncService struct {
	config   *config.Config
	fs       afero.Fs
	store    *cachetree.Store
	lock     *lock.PassLock
	reporter progress.Reporter
	history  *state.Manager
	metrics  *metrics.Recorder
}

// NewSyncService creates a new sync service.
// cachePath is required when cfg.Cache is set and ignored otherwise.
func NewSyncService(cfg *config.Config, cachePath string) (*SyncService, error) {
	return newSyncService(afero.NewOsFs(), cfg, cachePath)
}

func newSyncService(fsys afero.Fs, cfg *config.Config, cachePath string) (*SyncService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.CheckCachePath(cachePath); err != nil {
		return nil, err
	}

	passLock, err := lock.NewPassLock(fsys, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create pass lock: %w", err)
	}

	svc := &SyncService{
		config: cfg,
		fs:     fsys,
		lock:   passLock,
	}
	if cfg.Cache {
		svc.store = cachetree.NewStore(fsys, cachePath)
	}
	return svc, nil
}

// SetProgressReporter sets the reporter receiving per-file outcomes
func (s *SyncService) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

// SetHistory enables recording passes in the state database
func (s *SyncService) SetHistory(history *state.Manager) {
	s.history = history
}

// SetMetrics enables recording pass metrics
func (s *SyncService) SetMetrics(recorder *metrics.Recorder) {
	s.metrics = recorder
}

// IsLocked checks if another pass is in progress
func (s *SyncService) IsLocked() bool {
	return s.lock.IsLocked()
}

// RunPass runs one pass, discarding the summary
func (s *SyncService) RunPass(ctx context.Context) error {
	_, err := s.Sync(ctx)
	return err
}

// Sync runs one complete pass: walk every path map in order, then persist
// the cache. Any error aborts the pass and leaves the cache document as it
// was; links already created stay in place.
func (s *SyncService) Sync(ctx context.Context) (*PassSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &PassSummary{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
	}
	log := logger.With("pass", summary.ID)

	if err := s.lock.Acquire(summary.ID); err != nil {
		log.Error("failed to acquire pass lock", "error", err)
		return nil, fmt.Errorf("failed to acquire pass lock: %w", err)
	}

	tally := progress.NewTally(s.reporter)
	err := s.run(log, tally, summary)

	if releaseErr := s.lock.Release(); releaseErr != nil {
		log.Error("failed to release pass lock", "error", releaseErr)
	}

	summary.EndTime = time.Now()
	summary.PathMaps = tally.PathMaps()
	summary.Skipped = map[domain.SkipReason]int{
		domain.SkipNotIncluded: tally.SkippedCount(domain.SkipNotIncluded),
		domain.SkipCached:      tally.SkippedCount(domain.SkipCached),
		domain.SkipNotRegular:  tally.SkippedCount(domain.SkipNotRegular),
	}
	s.record(log, summary, err)

	if err != nil {
		log.Error("pass failed", "error", err, "linked", len(summary.Linked))
		return summary, err
	}

	log.Info("pass completed",
		"linked", len(summary.Linked),
		"skipped", summary.SkippedTotal(),
		"path_maps", summary.PathMaps,
		"duration", summary.EndTime.Sub(summary.StartTime),
	)
	return summary, nil
}

// run does the work of a pass while the lock is held
func (s *SyncService) run(log logger.Logger, tally *progress.Tally, summary *PassSummary) error {
	forest := cachetree.NewForest()
	if s.store != nil {
		loaded, found, err := s.store.Load()
		if err != nil {
			return fmt.Errorf("loading cache: %w", err)
		}
		if !found {
			log.Info("no cache document yet, starting empty", "path", s.store.Path())
		}
		forest = loaded
	}

	cached := forest.Flatten()
	log.Debug("cache loaded", "entries", cached.Len(), "enabled", s.store != nil)

	walker, err := linker.NewWalker(s.fs, linker.Options{
		Include:  s.config.Include,
		UseCache: s.config.Cache,
		Cached:   cached,
		Reporter: tally,
	})
	if err != nil {
		return err
	}

	for _, pm := range s.config.PathMaps {
		tally.Begin(pm.Src, pm.Dst)
		log.Debug("walking path map", "src", pm.Src, "dst", pm.Dst)

		linked, err := walker.Walk(pm.Src, pm.Dst, true)
		if err != nil {
			return fmt.Errorf("path map %s > %s: %w", pm.Src, pm.Dst, err)
		}
		summary.Linked = append(summary.Linked, linked...)

		if s.store == nil {
			continue
		}
		for _, path := range linked {
			if err := forest.Insert(path, pm.Src); err != nil {
				return fmt.Errorf("recording %s: %w", path, err)
			}
		}
	}

	if s.store == nil {
		return nil
	}
	if err := s.store.Save(forest); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	summary.CacheEntries = forest.LeafCount()
	return nil
}

// record stores the pass outcome in history and metrics when enabled
func (s *SyncService) record(log logger.Logger, summary *PassSummary, passErr error) {
	if s.history != nil {
		rec := state.PassRecord{
			ID:        summary.ID,
			StartTime: summary.StartTime,
			EndTime:   summary.EndTime,
			Status:    state.StatusSuccess,
			Linked:    len(summary.Linked),
			Skipped:   summary.SkippedTotal(),
			Cached:    summary.Skipped[domain.SkipCached],
			PathMaps:  summary.PathMaps,
		}
		if passErr != nil {
			rec.Status = state.StatusFailed
			rec.Error = passErr.Error()
		}
		if err := s.history.SavePass(rec); err != nil {
			log.Warn("failed to record pass history", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordPass(metrics.PassResult{
			Success:      passErr == nil,
			Duration:     summary.EndTime.Sub(summary.StartTime),
			Finished:     summary.EndTime,
			Linked:       len(summary.Linked),
			Skipped:      summary.Skipped,
			CacheEntries: summary.CacheEntries,
			CacheEnabled: s.store != nil,
		})
		if path := s.config.MetricsTextfile; path != "" {
			if err := s.metrics.WriteTextfile(path); err != nil {
				log.Warn("failed to write metrics", "error", err)
			}
		}
	}
}

// Close releases resources owned by the service
func (s *SyncService) Close() error {
	return s.lock.Release()
}

var _ io.Closer = (*SyncService)(nil)
