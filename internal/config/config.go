package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ning0612/linksync/internal/cachetree"
	"github.com/Ning0612/linksync/internal/domain"
	"github.com/Ning0612/linksync/internal/logger"
)

// Config represents the complete configuration for linksync
type Config struct {
	// PathMaps are walked in order on every pass
	PathMaps []domain.PathMap `mapstructure:"path_maps"`

	// Include lists the file name suffixes eligible for linking
	Include []string `mapstructure:"include"`

	// Cache enables skipping files linked by earlier passes
	Cache bool `mapstructure:"cache"`

	// DataDir holds the pass lock and the history database
	DataDir string `mapstructure:"data_dir"`

	// MetricsTextfile is where pass metrics are written; empty disables it
	MetricsTextfile string `mapstructure:"metrics_textfile"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig is the optional log section
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// FieldError reports a missing or unusable configuration field
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: field %q %s", domain.ErrConfigInvalid, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return domain.ErrConfigInvalid }

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	// One pass records every source once; a repeated src would insert its
	// files twice.
	seen := make(map[string]int)
	for i, pm := range c.PathMaps {
		if pm.Src == "" {
			return &FieldError{Field: fmt.Sprintf("path_maps[%d].src", i), Reason: "is empty"}
		}
		if pm.Dst == "" {
			return &FieldError{Field: fmt.Sprintf("path_maps[%d].dst", i), Reason: "is empty"}
		}
		src := filepath.Clean(pm.Src)
		if j, ok := seen[src]; ok {
			return &FieldError{
				Field:  fmt.Sprintf("path_maps[%d].src", i),
				Reason: fmt.Sprintf("repeats path_maps[%d].src", j),
			}
		}
		seen[src] = i

		if err := checkOverlap(i, pm); err != nil {
			return err
		}
	}
	for i, suffix := range c.Include {
		if suffix == "" {
			return &FieldError{Field: fmt.Sprintf("include[%d]", i), Reason: "is empty"}
		}
	}
	return nil
}

// checkOverlap rejects a dst that is src or lies inside it, comparing the
// paths with symlinks resolved.
func checkOverlap(i int, pm domain.PathMap) error {
	src, err := cachetree.ResolvePath(pm.Src)
	if err != nil {
		return &FieldError{Field: fmt.Sprintf("path_maps[%d].src", i), Reason: err.Error()}
	}
	dst, err := cachetree.ResolvePath(pm.Dst)
	if err != nil {
		return &FieldError{Field: fmt.Sprintf("path_maps[%d].dst", i), Reason: err.Error()}
	}

	field := fmt.Sprintf("path_maps[%d].dst", i)
	switch {
	case dst == src:
		return &FieldError{Field: field, Reason: "is the same directory as src"}
	case cachetree.IsWithin(dst, src):
		return &FieldError{Field: field, Reason: "lies inside src"}
	}
	return nil
}

// CheckCachePath rejects an enabled cache without a document path
func (c *Config) CheckCachePath(path string) error {
	if c.Cache && path == "" {
		return &FieldError{Field: "cache", Reason: "is enabled but no cache file was given"}
	}
	return nil
}

// LockPath returns the pass lock file location
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "linksync.lock")
}

// DatabasePath returns the pass history database location
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// PIDPath returns the watcher PID file location
func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir, "linksync.pid")
}

// LoggerOptions maps the log section onto logger options
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}

// DefaultDataDir returns the per-user data directory
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "linksync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".linksync")
	}
	return ".linksync"
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
