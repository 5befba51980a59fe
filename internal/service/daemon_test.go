package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/linksync/internal/scheduler"
	"github.com/Ning0612/linksync/internal/state"
	tu "github.com/Ning0612/linksync/internal/testutil"
)

func newTestDaemon(t *testing.T, f *fixture) (*DaemonService, *state.Manager) {
	t.Helper()

	history, err := state.NewManager(filepath.Join(f.cfg.DataDir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	svc := f.service(t)
	svc.SetHistory(history)

	d, err := NewDaemonService(f.cfg, svc, history)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, history
}

func TestNewDaemonService_Invalid(t *testing.T) {
	f := newFixture(t, false)

	_, err := NewDaemonService(nil, f.service(t), nil)
	assert.Error(t, err)

	_, err = NewDaemonService(f.cfg, nil, nil)
	assert.Error(t, err)
}

func TestDaemon_WatchTriggersPass(t *testing.T) {
	f := newFixture(t, true)
	tu.WriteTree(t, f.src, map[string]string{"a.txt": "a"})
	flag := filepath.Join(f.base, "sync.flag")

	d, _ := newTestDaemon(t, f)
	require.NoError(t, d.Start(context.Background(), scheduler.Config{
		Mode:     scheduler.ModeWatch,
		FlagFile: flag,
		Debounce: 50 * time.Millisecond,
	}))
	assert.FileExists(t, f.cfg.PIDPath())

	require.NoError(t, os.WriteFile(flag, []byte("go"), 0644))

	tu.AssertEventually(t, 3*time.Second, func() bool {
		return len(tu.Links(t, f.dst)) == 1
	}, "flag change should link a.txt")

	tu.AssertEventually(t, time.Second, func() bool {
		status := d.Status()
		return status.LastPass != nil && status.SchedulerStats.SuccessfulRuns == 1
	}, "pass should be recorded")

	require.NoError(t, d.Stop())
	_, err := os.Stat(f.cfg.PIDPath())
	assert.True(t, os.IsNotExist(err), "PID file must be removed on stop")
	assert.False(t, d.Status().Running)
}

func TestDaemon_IntervalInitialPass(t *testing.T) {
	f := newFixture(t, false)
	tu.WriteTree(t, f.src, map[string]string{"a.txt": "a", "b.txt": "b"})

	d, history := newTestDaemon(t, f)
	require.NoError(t, d.Start(context.Background(), scheduler.Config{
		Mode:       scheduler.ModeInterval,
		Interval:   time.Hour,
		RunInitial: true,
	}))

	tu.AssertEventually(t, 3*time.Second, func() bool {
		records, err := history.History(1)
		return err == nil && len(records) == 1
	}, "initial pass should run")

	assert.Equal(t, []string{"a.txt", "b.txt"}, tu.LinkNames(t, f.dst))
}

func TestDaemon_DoubleStartAndStop(t *testing.T) {
	f := newFixture(t, false)
	d, _ := newTestDaemon(t, f)

	assert.Error(t, d.Stop(), "stop before start")
	assert.Nil(t, d.Done())

	cfg := scheduler.Config{Mode: scheduler.ModeInterval, Interval: time.Hour}
	require.NoError(t, d.Start(context.Background(), cfg))
	assert.Error(t, d.Start(context.Background(), cfg))
	assert.NotNil(t, d.Done())

	require.NoError(t, d.Stop())
	assert.NoError(t, d.Close())
}

func TestDaemon_StopAfterCancel(t *testing.T) {
	f := newFixture(t, false)
	d, _ := newTestDaemon(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx, scheduler.Config{Mode: scheduler.ModeInterval, Interval: time.Hour}))

	done := d.Done()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit on cancellation")
	}

	assert.NoError(t, d.Stop())
}

func TestDaemon_InvalidScheduler(t *testing.T) {
	f := newFixture(t, false)
	d, _ := newTestDaemon(t, f)

	err := d.Start(context.Background(), scheduler.Config{Mode: "cron"})
	assert.Error(t, err)

	_, statErr := os.Stat(f.cfg.PIDPath())
	assert.True(t, os.IsNotExist(statErr), "no PID file for a daemon that never started")
}
