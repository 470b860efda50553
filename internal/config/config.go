// Package config builds the single process-wide configuration value. It is
// constructed once in main and passed by reference into the scheduler, fetcher
// and compositor rather than read as ambient state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all settings for the cache, monitor and radar pipeline.
type Config struct {
	DBPath string `mapstructure:"db_path"`
	// Location is the active location ID, e.g. "Canberra-r3dp5hh".
	Location      string         `mapstructure:"location"`
	CurrentFormat string         `mapstructure:"current_format"`
	Log           LogConfig      `mapstructure:"log"`
	Client        ClientConfig   `mapstructure:"client"`
	Archive       ArchiveConfig  `mapstructure:"archive"`
	Interval      IntervalConfig `mapstructure:"interval"`
	Radar         RadarConfig    `mapstructure:"radar"`
	Monitor       MonitorConfig  `mapstructure:"monitor"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

type ClientConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryLimit int           `mapstructure:"retry_limit"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type ArchiveConfig struct {
	Addr    string        `mapstructure:"addr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IntervalConfig sets the polling interval per resource kind. Freshness
// markers in the store record only the last check; the interval always comes
// from here.
type IntervalConfig struct {
	Observations time.Duration `mapstructure:"observations"`
	Daily        time.Duration `mapstructure:"daily"`
	Hourly       time.Duration `mapstructure:"hourly"`
	Warnings     time.Duration `mapstructure:"warnings"`
}

type RadarConfig struct {
	ID           int64         `mapstructure:"id"`
	Types        []string      `mapstructure:"types"`
	Features     []string      `mapstructure:"features"`
	LoopLength   int           `mapstructure:"loop_length"`
	FrameDelay   time.Duration `mapstructure:"frame_delay"`
	RemoveHeader bool          `mapstructure:"remove_header"`
	OutputDir    string        `mapstructure:"output_dir"`
	// Retention is how many tiles per stream survive pruning.
	Retention int `mapstructure:"retention"`
}

type MonitorConfig struct {
	// PollCeiling caps how long the scheduler sleeps even when nothing is
	// due sooner.
	PollCeiling time.Duration `mapstructure:"poll_ceiling"`
}

// Load reads configuration from the given file (or the default path when
// empty), layered under BOM_-prefixed environment variables and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", filepath.Join(DefaultStateDir(), "bomcache.db"))
	v.SetDefault("current_format", "{icon} {temp} ({temp_feels_like})")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("client.base_url", "https://api.weather.bom.gov.au/v1/locations")
	v.SetDefault("client.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.retry_limit", 5)
	v.SetDefault("client.retry_delay", 7*time.Second)

	v.SetDefault("archive.addr", "ftp.bom.gov.au:21")
	v.SetDefault("archive.timeout", 30*time.Second)

	v.SetDefault("interval.observations", 10*time.Minute)
	v.SetDefault("interval.daily", time.Hour)
	v.SetDefault("interval.hourly", 3*time.Hour)
	v.SetDefault("interval.warnings", 30*time.Minute)

	v.SetDefault("radar.types", []string{"128km"})
	v.SetDefault("radar.features", []string{"background", "topography", "range", "locations"})
	v.SetDefault("radar.loop_length", 24)
	v.SetDefault("radar.frame_delay", 200*time.Millisecond)
	v.SetDefault("radar.output_dir", filepath.Join(DefaultStateDir(), "radar-images"))
	v.SetDefault("radar.retention", 48)

	v.SetDefault("monitor.poll_ceiling", 5*time.Minute)
}

// Save writes the settings init establishes to path as YAML. Only the keys
// a user is expected to edit are written; everything else falls back to
// defaults on load.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.Set("db_path", c.DBPath)
	v.Set("location", c.Location)
	v.Set("current_format", c.CurrentFormat)
	v.Set("radar.id", c.Radar.ID)
	v.Set("radar.types", c.Radar.Types)
	v.Set("radar.features", c.Radar.Features)
	v.Set("radar.output_dir", c.Radar.OutputDir)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// DefaultConfigDir is ~/.config/bomcache, honouring XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "bomcache")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bomcache")
}

// DefaultStateDir is ~/.local/state/bomcache, honouring XDG_STATE_HOME.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "bomcache")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "bomcache")
}

// IntervalFor maps a resource kind name to its polling interval.
func (c *Config) IntervalFor(kind string) time.Duration {
	switch kind {
	case "observations":
		return c.Interval.Observations
	case "daily":
		return c.Interval.Daily
	case "hourly":
		return c.Interval.Hourly
	case "warnings":
		return c.Interval.Warnings
	}
	return c.Interval.Observations
}
