// Package config loads tool configuration from file, environment, and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Bench   BenchConfig   `mapstructure:"bench"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type DeviceConfig struct {
	// Select is the device selector: auto, cpu, gpu, metal, or cuda.
	Select string `mapstructure:"select"`
}

type PoolConfig struct {
	// MaxMB caps the bytes the buffer pool retains for reuse (0 = unlimited).
	MaxMB int64 `mapstructure:"max_mb"`
}

type BenchConfig struct {
	Rows       int `mapstructure:"rows"`
	Cols       int `mapstructure:"cols"`
	Iterations int `mapstructure:"iterations"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Select: "auto",
		},
		Pool: PoolConfig{
			MaxMB: 512,
		},
		Bench: BenchConfig{
			Rows:       1024,
			Cols:       1024,
			Iterations: 100,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "",
			Console: true,
		},
	}
}

// Load reads configuration from viper into a Config, applying defaults for
// anything unset.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Dir returns the tool's config directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".geryon")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
