package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/linksync/internal/config"
	"github.com/Ning0612/linksync/internal/domain"
	"github.com/Ning0612/linksync/internal/logger"
	"github.com/Ning0612/linksync/internal/metrics"
	"github.com/Ning0612/linksync/internal/progress"
	"github.com/Ning0612/linksync/internal/service"
	"github.com/Ning0612/linksync/internal/state"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "sync [config [cache]]",
		Short: "Run one synchronization pass",
		Long: `Run one pass over every path map: link each included source file into
the destination tree, skipping files recorded in the cache when caching is on.

With caching on, a missing cache file is not an error: the pass starts
from an empty cache and writes the file when it succeeds. Point --cache at
the wrong file and every included file is linked again.

Links are never pruned: a link whose source file has disappeared stays in
the destination tree until you remove it.

A destination that is its source, or lies inside it, is rejected.

With metrics_textfile set, each run rewrites the file. Counters start from
zero in every sync process; use the linksync_last_pass_* gauges to follow
one-shot runs.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyPositional(args)
			if quiet {
				return runSyncWith(cmd, opts, linkedOnly(cmd.OutOrStdout()))
			}
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only newly linked files")
	return cmd
}

// linkedOnly reports new links and drops headers and misses
func linkedOnly(out io.Writer) progress.Reporter {
	return progress.NewCallbackReporter(func(u progress.Update) {
		if u.Type == progress.UpdateLinked {
			fmt.Fprintf(out, "+ link %s\n", u.Path)
		}
	})
}

// passEnv is a sync service together with the optional stores it reports to
type passEnv struct {
	svc     *service.SyncService
	history *state.Manager
}

// newPassEnv builds the sync service for cfg. History and metrics are
// best effort: failing to open them only logs a warning.
func newPassEnv(cfg *config.Config, cachePath string, reporter progress.Reporter) (*passEnv, error) {
	svc, err := service.NewSyncService(cfg, cachePath)
	if err != nil {
		return nil, err
	}
	svc.SetProgressReporter(reporter)

	env := &passEnv{svc: svc}

	history, err := state.NewManager(cfg.DatabasePath())
	if err != nil {
		logger.Get().Warn("pass history disabled", "error", err)
	} else {
		env.history = history
		svc.SetHistory(history)
	}

	if cfg.MetricsTextfile != "" {
		svc.SetMetrics(metrics.NewRecorder())
	}
	return env, nil
}

func (e *passEnv) Close() error {
	err := e.svc.Close()
	if e.history != nil {
		if cerr := e.history.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func runSync(cmd *cobra.Command, opts *rootOptions) error {
	return runSyncWith(cmd, opts, progress.NewConsoleReporter(cmd.OutOrStdout()))
}

func runSyncWith(cmd *cobra.Command, opts *rootOptions, reporter progress.Reporter) error {
	cfg, err := opts.setup()
	if err != nil {
		return err
	}

	env, err := newPassEnv(cfg, opts.cacheFile(), reporter)
	if err != nil {
		return err
	}
	defer env.Close()

	summary, err := env.svc.Sync(cmd.Context())
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)
	return nil
}

func printSummary(out io.Writer, s *service.PassSummary) {
	fmt.Fprintf(out, "\n%d linked, %d skipped (%d cached, %d not included, %d not regular) in %s\n",
		len(s.Linked),
		s.SkippedTotal(),
		s.Skipped[domain.SkipCached],
		s.Skipped[domain.SkipNotIncluded],
		s.Skipped[domain.SkipNotRegular],
		s.EndTime.Sub(s.StartTime).Round(time.Millisecond),
	)
}
