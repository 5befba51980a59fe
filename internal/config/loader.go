package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Ning0612/linksync/internal/domain"
)

// requiredKeys must be present in every configuration document
var requiredKeys = []string{"path_maps", "include", "cache"}

// Load reads and parses a configuration file.
// The format follows the file extension; files without one are read as JSON.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, domain.ErrConfigNotFound
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// LoadFromString parses configuration from a string in the given format
func LoadFromString(content, format string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(format)

	if err := v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	for _, key := range requiredKeys {
		if !v.IsSet(key) {
			return nil, &FieldError{Field: key, Reason: "is missing"}
		}
	}

	v.SetDefault("data_dir", DefaultDataDir())

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(expandPathMapHook())); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.DataDir = ExpandPath(cfg.DataDir)
	if cfg.Log.File != "" {
		cfg.Log.File = ExpandPath(cfg.Log.File)
	}
	if cfg.MetricsTextfile != "" {
		cfg.MetricsTextfile = ExpandPath(cfg.MetricsTextfile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var pathMapType = reflect.TypeOf(domain.PathMap{})

// expandPathMapHook expands ~ and environment variables in path map entries
func expandPathMapHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != pathMapType {
			return data, nil
		}
		raw, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}

		expanded := make(map[string]any, len(raw))
		for k, val := range raw {
			if s, ok := val.(string); ok && (k == "src" || k == "dst") {
				val = ExpandPath(s)
			}
			expanded[k] = val
		}
		return expanded, nil
	}
}
