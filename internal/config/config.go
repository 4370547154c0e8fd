package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the tool configuration, loaded from a YAML file with defaults
// filled in for anything unset.
type Config struct {
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Playback  PlaybackConfig  `mapstructure:"playback" yaml:"playback"`
}

type OutputConfig struct {
	// Directory holds the recorded clips and the project manifest.
	Directory string `mapstructure:"directory" yaml:"directory"`
	Project   string `mapstructure:"project" yaml:"project"`
}

type CaptureConfig struct {
	VideoDevice string `mapstructure:"video_device" yaml:"video_device"`
	AudioDevice string `mapstructure:"audio_device" yaml:"audio_device"`
	Facing      string `mapstructure:"facing" yaml:"facing"` // "back", "front"
	Preset      string `mapstructure:"preset" yaml:"preset"` // "low", "medium", "high"

	// Simulated selects the deterministic no-hardware backend.
	Simulated bool `mapstructure:"simulated" yaml:"simulated"`
}

type RecordingConfig struct {
	// MaxDurationSeconds is the safety auto-stop bound.
	MaxDurationSeconds int `mapstructure:"max_duration_seconds" yaml:"max_duration_seconds"`

	// SimulatedClipSeconds is the nominal length of a fallback clip.
	SimulatedClipSeconds int `mapstructure:"simulated_clip_seconds" yaml:"simulated_clip_seconds"`
}

type PlaybackConfig struct {
	// Engine selects the playback path: "auto" prefers an external player
	// binary and falls back to the timer engine, "exec" and "timer" force
	// one.
	Engine string `mapstructure:"engine" yaml:"engine"`

	// TimerScale compresses timer-engine schedules; 1.0 is real time.
	TimerScale float64 `mapstructure:"timer_scale" yaml:"timer_scale"`
}

var defaultConfig = Config{
	Output: OutputConfig{
		Directory: "~/Videos/ClipStitch",
		Project:   "default",
	},
	Capture: CaptureConfig{
		AudioDevice: "default",
		Facing:      "back",
		Preset:      "medium",
	},
	Recording: RecordingConfig{
		MaxDurationSeconds:   300,
		SimulatedClipSeconds: 2,
	},
	Playback: PlaybackConfig{
		Engine:     "auto",
		TimerScale: 1.0,
	},
}

// Load reads the config file at path, applying defaults for unset fields. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	// A fresh viper instance so repeated loads never interfere with each
	// other.
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Output.Directory = expandHome(cfg.Output.Directory)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.directory", defaultConfig.Output.Directory)
	v.SetDefault("output.project", defaultConfig.Output.Project)
	v.SetDefault("capture.audio_device", defaultConfig.Capture.AudioDevice)
	v.SetDefault("capture.facing", defaultConfig.Capture.Facing)
	v.SetDefault("capture.preset", defaultConfig.Capture.Preset)
	v.SetDefault("recording.max_duration_seconds", defaultConfig.Recording.MaxDurationSeconds)
	v.SetDefault("recording.simulated_clip_seconds", defaultConfig.Recording.SimulatedClipSeconds)
	v.SetDefault("playback.engine", defaultConfig.Playback.Engine)
	v.SetDefault("playback.timer_scale", defaultConfig.Playback.TimerScale)
}

// Validate rejects values the rest of the tool cannot act on.
func (c *Config) Validate() error {
	switch c.Capture.Facing {
	case "back", "front":
	default:
		return fmt.Errorf("invalid capture.facing %q (expected back or front)", c.Capture.Facing)
	}

	switch c.Capture.Preset {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("invalid capture.preset %q (expected low, medium or high)", c.Capture.Preset)
	}

	switch c.Playback.Engine {
	case "auto", "exec", "timer":
	default:
		return fmt.Errorf("invalid playback.engine %q (expected auto, exec or timer)", c.Playback.Engine)
	}

	if c.Recording.MaxDurationSeconds <= 0 {
		return fmt.Errorf("recording.max_duration_seconds must be positive, got %d", c.Recording.MaxDurationSeconds)
	}
	if c.Recording.SimulatedClipSeconds <= 0 {
		return fmt.Errorf("recording.simulated_clip_seconds must be positive, got %d", c.Recording.SimulatedClipSeconds)
	}
	if c.Playback.TimerScale <= 0 {
		return fmt.Errorf("playback.timer_scale must be positive, got %g", c.Playback.TimerScale)
	}
	return nil
}

// MaxDuration returns the recording safety bound as a duration.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.Recording.MaxDurationSeconds) * time.Second
}

// SimulatedClipDuration returns the nominal simulated clip length.
func (c *Config) SimulatedClipDuration() time.Duration {
	return time.Duration(c.Recording.SimulatedClipSeconds) * time.Second
}

// DefaultPath is where the config file lives unless overridden.
func DefaultPath() string {
	return expandHome("~/.config/clipstitch.yaml")
}

// WriteDefault writes the default config to path, refusing to clobber an
// existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
