// Package config provides configuration loading for suiterun.
// Settings come from an optional YAML file with defaults applied for
// anything unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = ".suiterun.yaml"

// Config contains all suiterun settings.
type Config struct {
	// StoreDir is the root of persisted state: artifacts/ and history/
	// live under it. Relative paths resolve against the repository root.
	StoreDir string `yaml:"store_dir"`

	// Workers is the default worker count for discovery/automated runs.
	// Zero means the available core count.
	Workers int `yaml:"workers"`

	// UnitTimeout is the default per-unit limit.
	UnitTimeout time.Duration `yaml:"unit_timeout"`

	// Grace is how long running units may continue after run cancellation.
	Grace time.Duration `yaml:"grace_period"`

	// Budget is the default wall-clock budget for automated runs.
	Budget time.Duration `yaml:"budget"`

	// RenderBackend is the headless plot backend handed to plotting units.
	RenderBackend string `yaml:"render_backend"`

	// Coverage configures the coverage gate.
	Coverage CoverageConfig `yaml:"coverage"`
}

// CoverageConfig holds the coverage gate thresholds.
type CoverageConfig struct {
	// Minimum is the branch ratio below which the gate fails.
	Minimum float64 `yaml:"minimum"`
	// Target is the aspirational ratio reported alongside the gate.
	Target float64 `yaml:"target"`
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		StoreDir:      ".suiterun",
		Workers:       0,
		UnitTimeout:   30 * time.Second,
		Grace:         5 * time.Second,
		Budget:        10 * time.Minute,
		RenderBackend: "headless",
		Coverage: CoverageConfig{
			Minimum: 0.80,
			Target:  0.90,
		},
	}
}

// Load reads path and unmarshals it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise DefaultFile when present,
// otherwise the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}

func (c *Config) validate() error {
	if c.StoreDir == "" {
		return fmt.Errorf("store_dir must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Coverage.Minimum < 0 || c.Coverage.Minimum > 1 {
		return fmt.Errorf("coverage.minimum must be within [0, 1]")
	}
	if c.Coverage.Target < c.Coverage.Minimum || c.Coverage.Target > 1 {
		return fmt.Errorf("coverage.target must be within [minimum, 1]")
	}
	return nil
}
