package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/linksync/internal/domain"
)

const validJSON = `{
    "path_maps": [{"src": "/lib", "dst": "/out"}],
    "include": [".txt", ".mp4"],
    "cache": true
}`

func TestLoadFromString_Valid(t *testing.T) {
	cfg, err := LoadFromString(validJSON, "json")
	require.NoError(t, err)

	assert.Equal(t, []domain.PathMap{{Src: "/lib", Dst: "/out"}}, cfg.PathMaps)
	assert.Equal(t, []string{".txt", ".mp4"}, cfg.Include)
	assert.True(t, cfg.Cache)
	assert.Equal(t, DefaultDataDir(), cfg.DataDir)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestLoadFromString_MissingField(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"no path_maps", `{"include": [".txt"], "cache": false}`, "path_maps"},
		{"no include", `{"path_maps": [], "cache": false}`, "include"},
		{"no cache", `{"path_maps": [], "include": []}`, "cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.content, "json")

			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)
		})
	}
}

func TestLoadFromString_EmptyPathMapEntry(t *testing.T) {
	_, err := LoadFromString(`{"path_maps": [{"src": "/a"}], "include": [], "cache": false}`, "json")

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "path_maps[0].dst", fieldErr.Field)
}

func TestLoadFromString_RepeatedSource(t *testing.T) {
	_, err := LoadFromString(`{
        "path_maps": [{"src": "/lib", "dst": "/a"}, {"src": "/lib/", "dst": "/b"}],
        "include": [".txt"],
        "cache": true
    }`, "json")

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "path_maps[1].src", fieldErr.Field)
}

func TestValidate_DestinationOverlapsSource(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "lib")
	require.NoError(t, os.MkdirAll(src, 0755))
	alias := filepath.Join(base, "alias")
	if err := os.Symlink(src, alias); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	tests := []struct {
		name   string
		dst    string
		reason string
	}{
		{"same directory", src, "is the same directory as src"},
		{"same directory through a link", alias, "is the same directory as src"},
		{"trailing separator", src + string(filepath.Separator), "is the same directory as src"},
		{"inside source", filepath.Join(src, "out"), "lies inside src"},
		{"inside source through a link", filepath.Join(alias, "out", "deeper"), "lies inside src"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				PathMaps: []domain.PathMap{{Src: src, Dst: tt.dst}},
				Include:  []string{".txt"},
			}

			err := cfg.Validate()
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)
			assert.Equal(t, "path_maps[0].dst", fieldErr.Field)
			assert.Equal(t, tt.reason, fieldErr.Reason)
		})
	}
}

func TestValidate_SiblingDestinationAllowed(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{
		PathMaps: []domain.PathMap{
			{Src: filepath.Join(base, "lib"), Dst: filepath.Join(base, "library")},
			{Src: filepath.Join(base, "media", "in"), Dst: filepath.Join(base, "media")},
		},
		Include: []string{".txt"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromString_ExpandsPaths(t *testing.T) {
	t.Setenv("LINKSYNC_TEST_MEDIA", "/srv/media")

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := LoadFromString(`{
        "path_maps": [{"src": "$LINKSYNC_TEST_MEDIA/shows", "dst": "~/links"}],
        "include": [".mkv"],
        "cache": false,
        "data_dir": "~/state"
    }`, "json")
	require.NoError(t, err)

	assert.Equal(t, "/srv/media/shows", cfg.PathMaps[0].Src)
	assert.Equal(t, filepath.Join(home, "links"), cfg.PathMaps[0].Dst)
	assert.Equal(t, filepath.Join(home, "state"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, "state", "state.db"), cfg.DatabasePath())
}

func TestLoadFromString_YAML(t *testing.T) {
	cfg, err := LoadFromString(`
path_maps:
  - src: /lib
    dst: /out
include: [".srt"]
cache: false
log:
  level: debug
  format: json
`, "yaml")
	require.NoError(t, err)

	assert.Len(t, cfg.PathMaps, 1)
	assert.Equal(t, "debug", cfg.LoggerOptions().Level)
	assert.Equal(t, "json", cfg.LoggerOptions().Format)
}

func TestLoadFromString_Malformed(t *testing.T) {
	_, err := LoadFromString(`{"path_maps": [`, "json")
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "linksync.json")
	require.NoError(t, os.WriteFile(path, []byte(validJSON), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.PathMaps, 1)

	bare := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(bare, []byte(validJSON), 0644))
	cfg, err = Load(bare)
	require.NoError(t, err)
	assert.Equal(t, []string{".txt", ".mp4"}, cfg.Include)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)

	_, err = Load("")
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestConfig_CheckCachePath(t *testing.T) {
	cfg := &Config{Cache: true}
	assert.ErrorIs(t, cfg.CheckCachePath(""), domain.ErrConfigInvalid)
	assert.NoError(t, cfg.CheckCachePath("/tmp/cache.json"))

	cfg.Cache = false
	assert.NoError(t, cfg.CheckCachePath(""))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "a"), ExpandPath("~/a"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, filepath.Clean("/x/y"), ExpandPath("/x//y/"))
}
