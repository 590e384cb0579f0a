// Package models defines data structures for configuration and documents.
package models

import (
	"fmt"
	"os"
	"time"

	"github.com/dtnitsch/freqmerge/pkg/detector"
	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for aggregation runs.
// Values come from an optional YAML file and are overridden by CLI flags.
type Config struct {
	Merge         freqmap.MergeConfig `yaml:"merge"`
	WorkerCount   int                 `yaml:"workers"`
	Top           int                 `yaml:"top"`
	GroupBy       string              `yaml:"group_by"`
	Languages     []string            `yaml:"languages"`
	MinWordLength int                 `yaml:"min_word_length"`
	DBPath        string              `yaml:"db_path"`
	FetchTimeout  time.Duration       `yaml:"fetch_timeout"`
	CacheDir      string              `yaml:"cache_dir"`
	CacheMaxAge   time.Duration       `yaml:"cache_max_age"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Merge:         freqmap.DefaultMergeConfig(),
		WorkerCount:   4,
		Top:           25,
		GroupBy:       detector.ByLanguage,
		Languages:     []string{"en", "de", "fr", "es"},
		MinWordLength: 2,
		FetchTimeout:  30 * time.Second,
		CacheMaxAge:   24 * time.Hour,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would make a run meaningless.
func (c *Config) Validate() error {
	if err := c.Merge.Validate(); err != nil {
		return fmt.Errorf("invalid merge config: %w", err)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.WorkerCount)
	}
	if c.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", c.Top)
	}
	if err := detector.ValidateMode(c.GroupBy); err != nil {
		return err
	}
	return nil
}
