package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LIVETREE_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 16*time.Millisecond, cfg.Engine.FrameInterval)
	require.True(t, cfg.Engine.TransitionsEnabled)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, "sqlite", cfg.Snapshot.Driver)
	require.Equal(t, filepath.Join(home, ".local", "share", "livetree", "livetree.db"), cfg.Snapshot.Path)
	require.Equal(t, 80, cfg.UI.Width)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
frame_interval = "40ms"
transitions_enabled = false

[snapshot]
driver = "bolt"
path = "/tmp/state.bolt"
`), 0o600))
	t.Setenv("LIVETREE_CONFIG", path)
	t.Setenv("LIVETREE_UI_WIDTH", "120")
	t.Setenv("LIVETREE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 40*time.Millisecond, cfg.Engine.FrameInterval)
	require.False(t, cfg.Engine.TransitionsEnabled)
	require.Equal(t, "bolt", cfg.Snapshot.Driver)
	require.Equal(t, "/tmp/state.bolt", cfg.Snapshot.Path)
	require.Equal(t, 120, cfg.UI.Width)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("LIVETREE_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Snapshot.Driver)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\n"), 0o600))
	t.Setenv("LIVETREE_CONFIG", path)
	_, err := Load()
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("LIVETREE_CONFIG", path)

	want := Config{
		Engine:   EngineConfig{FrameInterval: 20 * time.Millisecond, Debug: true},
		Log:      LogConfig{Level: "warn", Format: "json"},
		Snapshot: SnapshotConfig{Driver: "none", Path: "x.db"},
		UI:       UIConfig{Width: 100, Theme: "plain"},
	}
	require.NoError(t, Save(want))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}
