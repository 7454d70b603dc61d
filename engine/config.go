package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines tuning parameters for the engine's execution behavior.
// Additional concerns (stores, collaborators, logging) are configured via
// functional options rather than expanding this struct.
type Config struct {
	// BackoffBase is the delay before the dispatcher's first retry; each
	// further retry doubles it.
	BackoffBase time.Duration

	// DefaultTimeout bounds tool attempts for tasks that declare no
	// explicit timeout.
	DefaultTimeout time.Duration

	// MaxFailedTasks is the cumulative failed-task ceiling above which the
	// classifier escalates instead of re-planning.
	MaxFailedTasks int
}

// DefaultConfig provides production-ready default configuration values.
var DefaultConfig = Config{
	BackoffBase:    time.Second,
	DefaultTimeout: 30 * time.Second,
	MaxFailedTasks: 3,
}

// fileConfig is the YAML representation of Config; durations are strings
// in time.ParseDuration syntax.
type fileConfig struct {
	BackoffBase    string `yaml:"backoff_base"`
	DefaultTimeout string `yaml:"default_timeout"`
	MaxFailedTasks *int   `yaml:"max_failed_tasks"`
}

// LoadConfig reads a YAML config file, applying defaults for absent fields.
//
// Example:
//
//	backoff_base: 500ms
//	default_timeout: 1m
//	max_failed_tasks: 5
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig
	if fc.BackoffBase != "" {
		d, err := time.ParseDuration(fc.BackoffBase)
		if err != nil {
			return Config{}, fmt.Errorf("parse backoff_base: %w", err)
		}
		cfg.BackoffBase = d
	}
	if fc.DefaultTimeout != "" {
		d, err := time.ParseDuration(fc.DefaultTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse default_timeout: %w", err)
		}
		cfg.DefaultTimeout = d
	}
	if fc.MaxFailedTasks != nil {
		if *fc.MaxFailedTasks < 1 {
			return Config{}, fmt.Errorf("max_failed_tasks must be >= 1")
		}
		cfg.MaxFailedTasks = *fc.MaxFailedTasks
	}
	return cfg, nil
}
