// Package cli implements the linksync command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ning0612/linksync/internal/config"
	"github.com/Ning0612/linksync/internal/logger"
)

// Build information, set with -ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootOptions holds the persistent flags shared by all commands
type rootOptions struct {
	configPath string
	cachePath  string
	logLevel   string
	logFormat  string
	logFile    string
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "linksync [config [cache [flag]]]",
		Short: "Mirror media trees as symbolic links",
		Long: `linksync mirrors source directory trees into destination trees made of
symbolic links, linking only files whose names end in a configured suffix.

With caching enabled, files linked by an earlier run are remembered in a
cache document and left alone, so links you delete stay deleted.

The bare positional form runs one pass (config cache) or, when a flag file
is given, watches it and runs a pass whenever it changes.`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			opts.applyPositional(args)
			if len(args) == 3 {
				return runWatch(cmd, opts, watchOptions{flagFile: args[2]})
			}
			return runSync(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file (JSON, YAML or TOML)")
	flags.StringVar(&opts.cachePath, "cache", "", "cache document recording linked files")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this rotated file")

	rootCmd.AddCommand(newSyncCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newStopCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newUnlockCmd(opts))
	rootCmd.AddCommand(newCacheCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// applyPositional fills config and cache paths from the classic positional form
func (o *rootOptions) applyPositional(args []string) {
	if len(args) > 0 {
		o.configPath = args[0]
	}
	if len(args) > 1 {
		o.cachePath = args[1]
	}
}

// setup loads the configuration and initializes logging.
// Flags take precedence over the config file's log section.
func (o *rootOptions) setup() (*config.Config, error) {
	if o.configPath == "" {
		return nil, fmt.Errorf("no configuration file given (use --config)")
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	logOpts := cfg.LoggerOptions()
	if o.logLevel != "" {
		logOpts.Level = o.logLevel
	}
	if o.logFormat != "" {
		logOpts.Format = o.logFormat
	}
	if o.logFile != "" {
		logOpts.File = config.ExpandPath(o.logFile)
	}

	// A previous command in the same process may have initialized it
	logger.Shutdown()
	if err := logger.Init(logOpts.Config()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Get().Debug("configuration loaded",
		"path", o.configPath,
		"path_maps", len(cfg.PathMaps),
		"cache", cfg.Cache,
	)
	return cfg, nil
}

// cacheFile returns the expanded cache path
func (o *rootOptions) cacheFile() string {
	if o.cachePath == "" {
		return ""
	}
	return config.ExpandPath(o.cachePath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "linksync version %s\n", Version)
			fmt.Fprintf(out, "  commit: %s\n", Commit)
			fmt.Fprintf(out, "  built:  %s\n", Date)
		},
	}
}
