package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/i5heu/GoSegQueue/internal/testbench"
)

// Config is an alias for testbench.Config. This allows other programs to import
// the benchmark plan without pulling in the entire testbench package.
type Config = testbench.Config

// Default returns the built-in benchmark plan.
func Default() Config {
	return Config{
		Iterations:    5,
		Duration:      2 * time.Second,
		MinCapacities: []int{1, 10, 64, 1024},
		BatchSizes:    []int{10, 1000, 100000},
		Trials:        5,
		TrialSize:     100000,
	}
}

// Load reads a YAML plan from path. Fields missing from the file keep their
// Default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that cfg describes a runnable plan.
func Validate(cfg Config) error {
	if cfg.Iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", cfg.Iterations)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %s", cfg.Duration)
	}
	if len(cfg.MinCapacities) == 0 {
		return fmt.Errorf("min_capacities must not be empty")
	}
	for _, c := range cfg.MinCapacities {
		if c < 1 {
			return fmt.Errorf("min capacity must be positive, got %d", c)
		}
	}
	if len(cfg.BatchSizes) == 0 {
		return fmt.Errorf("batch_sizes must not be empty")
	}
	for _, b := range cfg.BatchSizes {
		if b < 1 {
			return fmt.Errorf("batch size must be positive, got %d", b)
		}
	}
	if cfg.Trials < 0 || cfg.TrialSize < 0 {
		return fmt.Errorf("trials and trial_size must not be negative")
	}
	return nil
}
