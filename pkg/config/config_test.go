package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cabinmix.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Audio.SampleRate != 48000 {
					t.Errorf("expected default sample rate 48000, got %d", cfg.Audio.SampleRate)
				}
				if time.Duration(cfg.Audio.FadeDuration) != 1500*time.Millisecond {
					t.Errorf("expected default fade 1.5s, got %v", time.Duration(cfg.Audio.FadeDuration))
				}
				if float64(cfg.Audio.Deadband) != 0.1 {
					t.Errorf("expected default deadband 0.1, got %v", cfg.Audio.Deadband)
				}
				if cfg.Vehicles.Default != "A320" {
					t.Errorf("expected default vehicle A320, got %s", cfg.Vehicles.Default)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "sample_rate: 48000") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: mock, static") {
					t.Error("config file missing provider comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("audio:\n  fade_duration: 3s\n  master_volume: 0.5\n  position_deadband: 0.5m\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if time.Duration(cfg.Audio.FadeDuration) != 3*time.Second {
					t.Errorf("expected fade 3s, got %v", time.Duration(cfg.Audio.FadeDuration))
				}
				if cfg.Audio.MasterVolume != 0.5 {
					t.Errorf("expected master 0.5, got %v", cfg.Audio.MasterVolume)
				}
				if float64(cfg.Audio.Deadband) != 0.5 {
					t.Errorf("expected deadband 0.5, got %v", cfg.Audio.Deadband)
				}
				// Untouched sections keep their defaults.
				if cfg.Audio.SampleRate != 48000 {
					t.Errorf("expected default sample rate, got %d", cfg.Audio.SampleRate)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "sample_rate") {
					t.Error("existing config file should not be rewritten")
				}
			},
		},
		{
			name: "Env_Override",
			setup: func() {
				t.Setenv("CABINMIX_SERVER_ADDRESS", "0.0.0.0:9999")
				t.Setenv("CABINMIX_LOG_LEVEL", "debug")
				err := os.WriteFile(configPath, []byte("server:\n  address: localhost:1930\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != "0.0.0.0:9999" {
					t.Errorf("expected env address, got %s", cfg.Server.Address)
				}
				if cfg.Log.Server.Level != "DEBUG" {
					t.Errorf("expected DEBUG, got %s", cfg.Log.Server.Level)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "9999") {
					t.Error("environment override should NOT be persisted to config file")
				}
			},
		},
		{
			name: "DotEnv_File",
			setup: func() {
				t.Setenv("CABINMIX_DB_PATH", "")
				os.Unsetenv("CABINMIX_DB_PATH")
				err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("CABINMIX_DB_PATH=/tmp/from-dotenv.db\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup .env: %v", err)
				}
				t.Cleanup(func() {
					os.Remove(filepath.Join(tempDir, ".env"))
					os.Unsetenv("CABINMIX_DB_PATH")
				})
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.DB.Path != "/tmp/from-dotenv.db" {
					t.Errorf("expected db path from .env, got %s", cfg.DB.Path)
				}
			},
			checkFile: func(t *testing.T) {},
		},
		{
			name: "Invalid_YAML",
			setup: func() {
				err := os.WriteFile(configPath, []byte("audio: [not a map]"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_MasterVolume",
			setup: func() {
				err := os.WriteFile(configPath, []byte("audio:\n  master_volume: 1.5\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_DelayMix",
			setup: func() {
				err := os.WriteFile(configPath, []byte("effects:\n  delay_mix: -0.1\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if err == nil {
				tt.validate(t, cfg)
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "default_config.yaml")

	err := GenerateDefault(configPath)
	if err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("GenerateDefault() did not create file")
	}

	// Running again should not fail
	err = GenerateDefault(configPath)
	if err != nil {
		t.Errorf("GenerateDefault() error on second run = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if time.Duration(cfg.Ticker.PositionLoop) != 100*time.Millisecond {
		t.Errorf("expected position loop 100ms, got %v", time.Duration(cfg.Ticker.PositionLoop))
	}
}
