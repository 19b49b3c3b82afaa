package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOverridesDefaults(t *testing.T) {
	src := `
[display]
width = 800
height = 600

[render_path]
file = "paths/main.xml"
hot_reload = true
preload_workers = 2

[log]
level = "debug"
format = "json"

[engine]
frame_limit = 30.0
profiling = true
profile_interval = "500ms"
`
	cfg, err := Read(strings.NewReader(src))
	require.NoError(t, err)

	want := Default()
	want.Display.Width = 800
	want.Display.Height = 600
	want.RenderPath.File = "paths/main.xml"
	want.RenderPath.HotReload = true
	want.RenderPath.PreloadWorkers = 2
	want.Log.Level = "debug"
	want.Log.Format = "json"
	want.Engine.FrameLimit = 30
	want.Engine.Profiling = true
	want.Engine.ProfileInterval = "500ms"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	d, err := cfg.Engine.Interval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
}

func TestReadEmptyIsDefault(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestReadRejectsUnknownKeys(t *testing.T) {
	_, err := Read(strings.NewReader("[display]\ndepth = 3\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestReadRejectsMalformedToml(t *testing.T) {
	_, err := Read(strings.NewReader("[display\nwidth = 1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"zero width", func(c *Config) { c.Display.Width = 0 }, "display"},
		{"negative workers", func(c *Config) { c.RenderPath.PreloadWorkers = -1 }, "render_path.preload_workers"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative tick rate", func(c *Config) { c.Engine.TickRate = -1 }, "engine.tick_rate"},
		{"negative frame limit", func(c *Config) { c.Engine.FrameLimit = -5 }, "engine.frame_limit"},
		{"bad interval", func(c *Config) { c.Engine.ProfileInterval = "soon" }, "engine.profile_interval"},
		{"zero interval", func(c *Config) { c.Engine.ProfileInterval = "0s" }, "engine.profile_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Display.Height = -1
	cfg.Log.Format = "yaml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display")
	assert.Contains(t, err.Error(), "log.format")
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.RenderPath.File = "a.xml"
	cfg.RenderPath.Strict = true

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, cfg))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.toml")
	require.NoError(t, os.WriteFile(path, []byte("[display]\ntitle = \"viewer\"\n"), 0o644))

	cfg, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "viewer", cfg.Display.Title)

	_, err = Open(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0o644))
	_, err = Open(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "app.toml")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Level: "warn", Format: "json"}.NewLogger(&buf)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	lvl, err := Log{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}
