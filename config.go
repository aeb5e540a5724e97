package main

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	defaultUserAgent     = "docmirror/1.0"
	defaultTimeoutSec    = 30
	defaultSnapshotEvery = 10
)

// Configuration validation errors.
var (
	ErrInvalidTimeout       = errors.New("timeout_sec must be non-negative")
	ErrInvalidSnapshotEvery = errors.New("snapshot_every must be non-negative")
)

// FileConfig is the optional YAML run configuration. Command-line flags
// override anything set here.
type FileConfig struct {
	UserAgent           string   `yaml:"user_agent"`
	TimeoutSec          int      `yaml:"timeout_sec"`
	Ignore              []string `yaml:"ignore"`
	SnapshotEvery       int      `yaml:"snapshot_every"`
	Text                bool     `yaml:"text"`
	CheckTitleDuplicate bool     `yaml:"check_title_duplicate"`
}

// LoadFileConfig reads and validates a YAML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges and compiles the ignore patterns once so bad input
// fails at startup instead of mid-walk.
func (c *FileConfig) Validate() error {
	if c.TimeoutSec < 0 {
		return ErrInvalidTimeout
	}
	if c.SnapshotEvery < 0 {
		return ErrInvalidSnapshotEvery
	}
	for _, pattern := range c.Ignore {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("ignore pattern %q is invalid regex: %w", pattern, err)
		}
	}
	return nil
}

// compileIgnorePatterns turns the merged ignore list into matchers.
func compileIgnorePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
