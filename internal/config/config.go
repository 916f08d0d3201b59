package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Stress  StressConfig  `toml:"stress"`
	Logging LoggingConfig `toml:"logging"`
}

type StressConfig struct {
	Name       string        `toml:"name"`
	Duration   time.Duration `toml:"duration"`
	Entities   int           `toml:"entities"`
	Components int           `toml:"components"` // component ids in use, at most 32
	Churn      int           `toml:"churn"`      // entities created and destroyed per tick
	Tick       time.Duration `toml:"tick"`       // 0 runs updates back to back
	DebugInfo  string        `toml:"debug_info"` // optional YAML component table
	Seed       int64         `toml:"seed"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads a TOML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Stress: StressConfig{
			Name:       "stress",
			Duration:   10 * time.Second,
			Entities:   10000,
			Components: 8,
			Churn:      100,
			Seed:       1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	s := c.Stress
	if s.Components < 4 || s.Components > 32 {
		return fmt.Errorf("stress.components = %d, want 4..32", s.Components)
	}
	if s.Entities < 0 || s.Churn < 0 {
		return errors.New("stress.entities and stress.churn must not be negative")
	}
	if s.Duration <= 0 {
		return errors.New("stress.duration must be positive")
	}
	if s.Tick < 0 {
		return errors.New("stress.tick must not be negative")
	}
	return nil
}
