package scheduler

import (
	"context"
	"fmt"
	"time"
)

// IntervalScheduler runs a pass every Interval using time.Ticker
type IntervalScheduler struct {
	*loop
	config Config
}

// NewIntervalScheduler creates a new interval-based scheduler
func NewIntervalScheduler(config Config, runner PassRunner) (*IntervalScheduler, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", config.Interval)
	}

	l, err := newLoop(runner)
	if err != nil {
		return nil, err
	}

	return &IntervalScheduler{loop: l, config: config}, nil
}

// Start begins the scheduling loop
func (s *IntervalScheduler) Start(ctx context.Context) error {
	if err := s.begin(time.Now().Add(s.config.Interval)); err != nil {
		return err
	}

	go s.run(ctx)
	return nil
}

func (s *IntervalScheduler) run(ctx context.Context) {
	defer s.finish()

	if s.config.RunInitial {
		s.runPass(ctx, time.Now().Add(s.config.Interval))
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runPass(ctx, time.Now().Add(s.config.Interval))
		}
	}
}
