package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Ning0612/linksync/internal/config"
	"github.com/Ning0612/linksync/internal/daemon"
	"github.com/Ning0612/linksync/internal/logger"
	"github.com/Ning0612/linksync/internal/progress"
	"github.com/Ning0612/linksync/internal/scheduler"
	"github.com/Ning0612/linksync/internal/service"
)

type watchOptions struct {
	flagFile    string
	interval    time.Duration
	debounce    time.Duration
	skipInitial bool
}

// schedulerConfig picks watch mode when a flag file is given, interval otherwise
func (w watchOptions) schedulerConfig() (scheduler.Config, error) {
	cfg := scheduler.Config{
		Debounce:   w.debounce,
		RunInitial: !w.skipInitial,
	}
	switch {
	case w.flagFile != "":
		cfg.Mode = scheduler.ModeWatch
		cfg.FlagFile = config.ExpandPath(w.flagFile)
	case w.interval > 0:
		cfg.Mode = scheduler.ModeInterval
		cfg.Interval = w.interval
	default:
		return cfg, fmt.Errorf("either --flag or --interval is required")
	}
	return cfg, nil
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var wopts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [config [cache]]",
		Short: "Run passes whenever a flag file changes",
		Long: `Watch a flag file and run a pass each time it is created, written or
renamed. With --interval instead, run a pass on a fixed period.

A pass runs once at startup unless --skip-initial is given. A failed pass
is logged and watching continues. Stop with Ctrl-C or "linksync stop".`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyPositional(args)
			return runWatch(cmd, opts, wopts)
		},
	}

	cmd.Flags().StringVarP(&wopts.flagFile, "flag", "f", "", "flag file whose changes trigger a pass")
	cmd.Flags().DurationVar(&wopts.interval, "interval", 0, "run a pass on this period instead of watching")
	cmd.Flags().DurationVar(&wopts.debounce, "debounce", scheduler.DefaultDebounce, "quiet time after a flag change before the pass")
	cmd.Flags().BoolVar(&wopts.skipInitial, "skip-initial", false, "do not run a pass at startup")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *rootOptions, wopts watchOptions) error {
	schedCfg, err := wopts.schedulerConfig()
	if err != nil {
		return err
	}

	cfg, err := opts.setup()
	if err != nil {
		return err
	}

	env, err := newPassEnv(cfg, opts.cacheFile(), progress.NewConsoleReporter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer env.Close()

	d, err := service.NewDaemonService(cfg, env.svc, env.history)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx, schedCfg); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		logger.Get().Info("shutdown requested")
	case <-d.Done():
	}

	return d.Stop()
}

func newStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [config]",
		Short: "Stop a running watcher",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyPositional(args)
			cfg, err := opts.setup()
			if err != nil {
				return err
			}

			pidFile := daemon.NewPIDFile(afero.NewOsFs(), cfg.PIDPath())
			pid, err := pidFile.Signal()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent stop signal to watcher (PID %d)\n", pid)
			return nil
		},
	}
}
