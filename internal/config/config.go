// ABOUTME: Configuration for the pcmstream player
// ABOUTME: Loads YAML, applies environment overrides and validates
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the player configuration, loaded from YAML
type Config struct {
	Server    string        `yaml:"server"`    // host:port or ws:// URL
	Handshake string        `yaml:"handshake"` // auto, minimal or extended
	Payload   string        `yaml:"payload"`   // pcm or msgpack
	Discover  time.Duration `yaml:"discover"`  // mDNS browse time when no server is set
	NoTUI     bool          `yaml:"no_tui"`
	Buffer    BufferConfig  `yaml:"buffer"`
	Output    OutputConfig  `yaml:"output"`
	Log       LogConfig     `yaml:"log"`
}

// BufferConfig holds jitter buffer and scheduler settings
type BufferConfig struct {
	Threshold   int           `yaml:"threshold"`    // chunks buffered before playback
	MaxBuffered int           `yaml:"max_buffered"` // 0 for unbounded
	Lead        time.Duration `yaml:"lead"`
	Tick        time.Duration `yaml:"tick"`
}

// OutputConfig selects the audio backend
type OutputConfig struct {
	Backend string `yaml:"backend"` // oto, portaudio, wav or null
	File    string `yaml:"file"`    // wav only
	Volume  int    `yaml:"volume"`  // 0-100
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Handshake: "auto",
		Payload:   "pcm",
		Discover:  10 * time.Second,
		Buffer: BufferConfig{
			Threshold:   5,
			MaxBuffered: 200,
			Lead:        100 * time.Millisecond,
			Tick:        10 * time.Millisecond,
		},
		Output: OutputConfig{
			Backend: "oto",
			File:    "pcmstream.wav",
			Volume:  100,
		},
		Log: LogConfig{
			Level: "info",
			File:  "pcmstream.log",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for values the player cannot use
func (cfg *Config) Validate() error {
	if !slices.Contains([]string{"auto", "minimal", "extended"}, cfg.Handshake) {
		return fmt.Errorf("handshake must be auto, minimal or extended, got %q", cfg.Handshake)
	}
	if !slices.Contains([]string{"pcm", "msgpack"}, cfg.Payload) {
		return fmt.Errorf("payload must be pcm or msgpack, got %q", cfg.Payload)
	}
	if cfg.Buffer.Threshold < 1 {
		return fmt.Errorf("buffer.threshold must be at least 1, got %d", cfg.Buffer.Threshold)
	}
	if cfg.Buffer.MaxBuffered < 0 {
		return fmt.Errorf("buffer.max_buffered must not be negative, got %d", cfg.Buffer.MaxBuffered)
	}
	if cfg.Buffer.MaxBuffered > 0 && cfg.Buffer.MaxBuffered < cfg.Buffer.Threshold {
		return fmt.Errorf("buffer.max_buffered (%d) must not be below buffer.threshold (%d)",
			cfg.Buffer.MaxBuffered, cfg.Buffer.Threshold)
	}
	if cfg.Buffer.Lead <= 0 {
		return fmt.Errorf("buffer.lead must be positive, got %s", cfg.Buffer.Lead)
	}
	if cfg.Buffer.Tick <= 0 {
		return fmt.Errorf("buffer.tick must be positive, got %s", cfg.Buffer.Tick)
	}
	if !slices.Contains([]string{"oto", "portaudio", "wav", "null"}, cfg.Output.Backend) {
		return fmt.Errorf("output.backend must be oto, portaudio, wav or null, got %q", cfg.Output.Backend)
	}
	if cfg.Output.Backend == "wav" && cfg.Output.File == "" {
		return fmt.Errorf("output.file is required for the wav backend")
	}
	if cfg.Output.Volume < 0 || cfg.Output.Volume > 100 {
		return fmt.Errorf("output.volume must be between 0 and 100, got %d", cfg.Output.Volume)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level)
	}
	return nil
}

func (cfg *Config) applyEnvOverrides() error {
	// PCMSTREAM_SERVER
	if val, ok := os.LookupEnv("PCMSTREAM_SERVER"); ok {
		cfg.Server = val
	}
	// PCMSTREAM_OUTPUT
	if val, ok := os.LookupEnv("PCMSTREAM_OUTPUT"); ok {
		cfg.Output.Backend = val
	}
	// PCMSTREAM_LOG_LEVEL
	if val, ok := os.LookupEnv("PCMSTREAM_LOG_LEVEL"); ok {
		cfg.Log.Level = val
	}
	// PCMSTREAM_THRESHOLD
	if val, ok := os.LookupEnv("PCMSTREAM_THRESHOLD"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid PCMSTREAM_THRESHOLD %q: %w", val, err)
		}
		cfg.Buffer.Threshold = n
	}
	return nil
}
