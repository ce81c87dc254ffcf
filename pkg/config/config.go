package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Ticker   TickerConfig   `yaml:"ticker"`
	Sim      SimConfig      `yaml:"sim"`
	Audio    AudioConfig    `yaml:"audio"`
	Effects  EffectsConfig  `yaml:"effects"`
	Vehicles VehiclesConfig `yaml:"vehicles"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string `yaml:"address"`
	MaxConnections int    `yaml:"max_connections"`
}

// TickerConfig holds ticker settings.
type TickerConfig struct {
	PositionLoop Duration `yaml:"position_loop"`
}

// SimConfig holds settings for the position source.
type SimConfig struct {
	Provider string        `yaml:"provider"` // "mock", "static"
	Mock     MockSimConfig `yaml:"mock"`
}

// MockSimConfig holds settings for the mock walk.
type MockSimConfig struct {
	Vehicle  string   `yaml:"vehicle"`
	Speed    float64  `yaml:"speed"` // meters per second
	Dwell    Duration `yaml:"dwell"`
	StartPos Distance `yaml:"start_position"`
}

// AudioConfig holds engine and mixer settings.
type AudioConfig struct {
	SampleRate       int                `yaml:"sample_rate"`
	Buffer           Duration           `yaml:"buffer"`
	FadeDuration     Duration           `yaml:"fade_duration"`
	MasterVolume     float64            `yaml:"master_volume"`
	TransitionBuffer float64            `yaml:"transition_buffer"`
	Deadband         Distance           `yaml:"position_deadband"`
	ForcedRefresh    Duration           `yaml:"forced_refresh"`
	Ambience         map[string]string  `yaml:"ambience"`
	Offline          bool               `yaml:"offline"`
	ZoneVolumes      map[string]float64 `yaml:"zone_volumes,omitempty"`
}

// EffectsConfig holds the effect chain parameters and start-up toggles.
type EffectsConfig struct {
	Reverb      bool     `yaml:"reverb"`
	Delay       bool     `yaml:"delay"`
	Compression bool     `yaml:"compression"`
	DelayTime   Duration `yaml:"delay_time"`
	DelayMix    float64  `yaml:"delay_mix"`
	Feedback    float64  `yaml:"delay_feedback"`
	DampCutoff  float64  `yaml:"damp_cutoff_hz"`
}

// VehiclesConfig points at extra vehicle geometries.
type VehiclesConfig struct {
	File    string `yaml:"file"`
	Default string `yaml:"default"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path: "./logs/zones.log",
			},
		},
		DB: DBConfig{
			Path: "./data/cabinmix.db",
		},
		Server: ServerConfig{
			Address:        "localhost:1930",
			MaxConnections: 64,
		},
		Ticker: TickerConfig{
			PositionLoop: Duration(100 * time.Millisecond),
		},
		Sim: SimConfig{
			Provider: "mock",
			Mock: MockSimConfig{
				Vehicle:  "A320",
				Speed:    1.2,
				Dwell:    Duration(20 * time.Second),
				StartPos: Distance(6),
			},
		},
		Audio: AudioConfig{
			SampleRate:       48000,
			Buffer:           Duration(100 * time.Millisecond),
			FadeDuration:     Duration(1500 * time.Millisecond),
			MasterVolume:     1.0,
			TransitionBuffer: 0.2,
			Deadband:         Distance(0.1),
			ForcedRefresh:    Duration(2 * time.Second),
			Ambience:         map[string]string{},
		},
		Effects: EffectsConfig{
			DelayTime:  Duration(300 * time.Millisecond),
			DelayMix:   1.0,
			Feedback:   0.3,
			DampCutoff: 2500,
		},
		Vehicles: VehiclesConfig{
			File:    "./config/vehicles.yaml",
			Default: "A320",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// .env sits next to the config file; a missing file is fine.
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from the environment (not saved to disk).
func applyEnv(cfg *Config) {
	if v := os.Getenv("CABINMIX_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("CABINMIX_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("CABINMIX_LOG_LEVEL"); v != "" {
		cfg.Log.Server.Level = strings.ToUpper(v)
	}
}

// Validate checks value ranges that would otherwise fail deep inside the
// audio engine.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("invalid audio.sample_rate %d", c.Audio.SampleRate)
	}
	if c.Audio.MasterVolume < 0 || c.Audio.MasterVolume > 1 {
		return fmt.Errorf("invalid audio.master_volume %v: must be within [0,1]", c.Audio.MasterVolume)
	}
	if c.Audio.FadeDuration < 0 {
		return fmt.Errorf("invalid audio.fade_duration %v", time.Duration(c.Audio.FadeDuration))
	}
	if c.Audio.TransitionBuffer < 0 {
		return fmt.Errorf("invalid audio.transition_buffer %v", c.Audio.TransitionBuffer)
	}
	if c.Effects.DelayMix < 0 || c.Effects.DelayMix > 1 {
		return fmt.Errorf("invalid effects.delay_mix %v: must be within [0,1]", c.Effects.DelayMix)
	}
	if time.Duration(c.Ticker.PositionLoop) <= 0 {
		return fmt.Errorf("invalid ticker.position_loop %v", time.Duration(c.Ticker.PositionLoop))
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# cabinmix Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m, cm, mm, ft, in; unitless values are meters
# Environment overrides (.env next to this file):
#   CABINMIX_DB_PATH, CABINMIX_SERVER_ADDRESS, CABINMIX_LOG_LEVEL

`)
	data = append(header, data...)

	// Inject comments for Enum fields
	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock, static\n${1}provider:"))

	reAmbience := regexp.MustCompile(`(?m)^(\s+)ambience:`)
	data = reAmbience.ReplaceAll(data, []byte("${1}# Zone -> mp3/wav loop, e.g. cabin: ./sounds/cabin.mp3\n${1}ambience:"))

	reDeadband := regexp.MustCompile(`(?m)^(\s+)position_deadband:`)
	data = reDeadband.ReplaceAll(data, []byte("${1}# Minimum movement (meters) before the mix is recomputed\n${1}position_deadband:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
