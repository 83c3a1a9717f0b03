// Package loader handles configuration file loading and validation.
//
// LOCATION: internal/loader/loader.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating field ranges and cross-field constraints
package loader

import (
	"fmt"
	"os"

	"github.com/vigil-sys/vigil/internal/constants"
	"github.com/vigil-sys/vigil/internal/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Server validation
	if cfg.Server.Listen == "" {
		errs.AddField("server.listen", "cannot be empty")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs.AddField("server.read_timeout", "must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs.AddField("server.write_timeout", "must be positive")
	}
	if cfg.Server.ShutdownTimeoutSec < 1 || cfg.Server.ShutdownTimeoutSec > 300 {
		errs.AddField("server.shutdown_timeout_sec", "must be between 1 and 300")
	}

	// Store validation
	if cfg.Store.KeepSeconds < 1 || cfg.Store.KeepSeconds > 86400 {
		errs.AddField("store.keep_seconds", "must be between 1 and 86400")
	}

	// Sampler validation
	if cfg.Sampler.PeriodSec < 1 || cfg.Sampler.PeriodSec > 3600 {
		errs.AddField("sampler.period_sec", "must be between 1 and 3600")
	} else if cfg.Sampler.PeriodSec > cfg.Store.KeepSeconds {
		errs.AddField("sampler.period_sec", "cannot exceed store.keep_seconds")
	}
	if cfg.Sampler.ProcessLimit < 1 || cfg.Sampler.ProcessLimit > 4096 {
		errs.AddField("sampler.process_limit", "must be between 1 and 4096")
	}
	for i, name := range cfg.Sampler.Disabled {
		if !constants.IsKnownCollector(name) {
			errs.AddField(fmt.Sprintf("sampler.disabled[%d]", i),
				fmt.Sprintf("unknown collector %q", name))
		}
	}

	// Stats validation
	if cfg.Stats.Accuracy < 0.001 || cfg.Stats.Accuracy > 0.1 {
		errs.AddField("stats.accuracy", "must be between 0.001 and 0.1")
	}

	// Log validation
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs.AddField("log.level", "must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "", "auto", "text", "json":
	default:
		errs.AddField("log.format", "must be one of: auto, text, json")
	}

	return errs.Err()
}
