package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockPassRunner counts passes and can fail or block them
type mockPassRunner struct {
	mu        sync.Mutex
	calls     int
	shouldErr bool
	delay     time.Duration
}

func (m *mockPassRunner) RunPass(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	delay, shouldErr := m.delay, m.shouldErr
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if shouldErr {
		return context.DeadlineExceeded
	}
	return nil
}

func (m *mockPassRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitForCalls(m *mockPassRunner, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if m.Calls() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.Calls() >= n
}

func TestNew(t *testing.T) {
	runner := &mockPassRunner{}

	s, err := New(Config{Mode: ModeInterval, Interval: time.Second}, runner)
	if err != nil {
		t.Fatalf("New(interval) error = %v", err)
	}
	if _, ok := s.(*IntervalScheduler); !ok {
		t.Errorf("expected *IntervalScheduler, got %T", s)
	}

	s, err = New(Config{Mode: ModeWatch, FlagFile: "/tmp/linksync.flag"}, runner)
	if err != nil {
		t.Fatalf("New(watch) error = %v", err)
	}
	if _, ok := s.(*WatchScheduler); !ok {
		t.Errorf("expected *WatchScheduler, got %T", s)
	}

	if _, err := New(Config{Mode: "cron"}, runner); err == nil {
		t.Error("expected error for unknown mode")
	}
}
