package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration
type Config struct {
	Audio         AudioConfig         `toml:"audio"`
	Controller    ControllerConfig    `toml:"controller"`
	Input         InputConfig         `toml:"input"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Output        OutputConfig        `toml:"output"`
	History       HistoryConfig       `toml:"history"`
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
}

// AudioConfig holds capture device settings
type AudioConfig struct {
	Device     string `toml:"device"`      // device name or numeric index; empty = default input
	SampleRate int    `toml:"sample_rate"` // Hz
	Channels   int    `toml:"channels"`
	BlockSize  int    `toml:"block_size"` // frames per capture callback
}

// ControllerConfig holds push-to-talk session settings
type ControllerConfig struct {
	ReleaseTimeoutMs int `toml:"release_timeout_ms"` // no-signal window treated as key release
	MinDurationMs    int `toml:"min_duration_ms"`    // recordings shorter than this are discarded
}

// InputConfig holds trigger source settings
type InputConfig struct {
	TriggerKey string `toml:"trigger_key"` // single character; " " = space
}

// TranscriptionConfig holds speech recognition settings
type TranscriptionConfig struct {
	Backend        string `toml:"backend"` // "openai" or "http"
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	APIKey         string `toml:"api_key"`  // empty = OPENAI_API_KEY env
	Endpoint       string `toml:"endpoint"` // http backend only
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`      // http backend only
	RetryBackoffMs int    `toml:"retry_backoff_ms"` // http backend, doubled per attempt
}

// OutputConfig selects where transcribed text is delivered
type OutputConfig struct {
	Print         bool   `toml:"print"`         // write to stdout
	File          string `toml:"file"`          // append to file; empty = disabled
	Clipboard     bool   `toml:"clipboard"`     // copy to system clipboard
	TypeText      bool   `toml:"type_text"`     // paste into the focused window
	Notifications bool   `toml:"notifications"` // desktop notifications
}

// HistoryConfig holds transcript history storage settings
type HistoryConfig struct {
	Enabled    bool   `toml:"enabled"`
	DBPath     string `toml:"db_path"`
	MaxEntries int    `toml:"max_entries"`
}

// ServerConfig holds the local status/history API settings
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BlockSize:  1024,
		},
		Controller: ControllerConfig{
			ReleaseTimeoutMs: 250,
			MinDurationMs:    300,
		},
		Input: InputConfig{
			TriggerKey: " ",
		},
		Transcription: TranscriptionConfig{
			Backend:        "openai",
			Model:          "whisper-1",
			Language:       "pl",
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RetryBackoffMs: 500,
		},
		Output: OutputConfig{
			Print: true,
		},
		History: HistoryConfig{
			Enabled:    true,
			DBPath:     "ptt.db",
			MaxEntries: 200,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8721",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML config file and merges it over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if cfg.Transcription.APIKey == "" {
		cfg.Transcription.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for unsupported values
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("unsupported channel count: %d (only mono capture is supported)", c.Audio.Channels)
	}
	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", c.Audio.BlockSize)
	}
	if c.Controller.ReleaseTimeoutMs <= 0 {
		return fmt.Errorf("invalid release timeout: %dms", c.Controller.ReleaseTimeoutMs)
	}
	if c.Controller.MinDurationMs < 0 {
		return fmt.Errorf("invalid minimum duration: %dms", c.Controller.MinDurationMs)
	}
	switch c.Transcription.Backend {
	case "openai", "http":
	default:
		return fmt.Errorf("unknown transcription backend: %s", c.Transcription.Backend)
	}
	if c.Transcription.Backend == "http" && c.Transcription.Endpoint == "" {
		return fmt.Errorf("http transcription backend requires an endpoint")
	}
	if len(c.Input.TriggerKey) != 1 {
		return fmt.Errorf("trigger key must be a single character, got %q", c.Input.TriggerKey)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server enabled but no listen address configured")
	}
	return nil
}

// ReleaseTimeout returns the controller release timeout as a duration
func (c *ControllerConfig) ReleaseTimeout() time.Duration {
	return time.Duration(c.ReleaseTimeoutMs) * time.Millisecond
}

// MinDuration returns the minimum recording duration as a duration
func (c *ControllerConfig) MinDuration() time.Duration {
	return time.Duration(c.MinDurationMs) * time.Millisecond
}
