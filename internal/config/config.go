package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Engine   EngineConfig
	Log      LogConfig
	Snapshot SnapshotConfig
	UI       UIConfig
}

// EngineConfig holds view engine settings.
type EngineConfig struct {
	FrameInterval      time.Duration `mapstructure:"frame_interval"`
	TransitionsEnabled bool          `mapstructure:"transitions_enabled"`
	Debug              bool
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// SnapshotConfig selects where the store is persisted between runs.
type SnapshotConfig struct {
	// Driver is sqlite, bolt or none.
	Driver string
	Path   string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Width int
	Theme string
}

// Load reads configuration from file and env. Env var overrides use prefix LIVETREE_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("engine.frame_interval", 16*time.Millisecond)
	v.SetDefault("engine.transitions_enabled", true)
	v.SetDefault("engine.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("snapshot.driver", "sqlite")
	v.SetDefault("snapshot.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "livetree", "livetree.db"))
	v.SetDefault("ui.width", 80)
	v.SetDefault("ui.theme", "default")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LIVETREE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "livetree"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LIVETREE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present; a missing file leaves the defaults
	if err := v.ReadInConfig(); err != nil && !missingConfig(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func missingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("LIVETREE_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "livetree", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("engine.frame_interval", cfg.Engine.FrameInterval.String())
	v.Set("engine.transitions_enabled", cfg.Engine.TransitionsEnabled)
	v.Set("engine.debug", cfg.Engine.Debug)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("snapshot.driver", cfg.Snapshot.Driver)
	v.Set("snapshot.path", cfg.Snapshot.Path)
	v.Set("ui.width", cfg.UI.Width)
	v.Set("ui.theme", cfg.UI.Theme)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
