// Package loader - Configuration Types
//
// LOCATION: internal/loader/types.go
//
// Defines the YAML configuration structure for vigild.
//
// Sections:
//
//	server:   listen address, HTTP timeouts, shutdown behavior
//	store:    in-memory retention window
//	sampler:  collection interval, process table size, disabled collectors
//	stats:    query-time percentile accuracy
//	log:      level and output format
package loader

import (
	"os"
	"time"

	"github.com/vigil-sys/vigil/config"
	"github.com/vigil-sys/vigil/internal/store"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for vigild.
type Config struct {
	// Server configures the HTTP API endpoint.
	Server ServerConfig `yaml:"server"`

	// Store configures the in-memory sample store.
	Store StoreConfig `yaml:"store"`

	// Sampler configures the collection loop.
	Sampler SamplerConfig `yaml:"sampler"`

	// Stats configures query-time statistics.
	Stats StatsConfig `yaml:"stats"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`

	// HostLabel overrides the host label attached to every collected series.
	// Resolution order: this field, $VIGIL_HOST_LABEL, os.Hostname().
	HostLabel string `yaml:"host_label"`
}

// =============================================================================
// Server Configuration
// =============================================================================

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Listen is the HTTP listen address.
	// Format: "host:port" or ":port"
	// Default: "0.0.0.0:8080"
	Listen string `yaml:"listen"`

	// ReadTimeout bounds how long a request may take to arrive.
	// Default: 10s
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout bounds how long a response may take to drain.
	// Exports of full windows can be large, so keep this generous.
	// Default: 30s
	WriteTimeout Duration `yaml:"write_timeout"`

	// ShutdownTimeoutSec is how long in-flight requests get to finish
	// during graceful shutdown.
	// Range: 1-300, Default: 10
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

// =============================================================================
// Store Configuration
// =============================================================================

// StoreConfig configures the in-memory sample store.
//
// Retention is count-based: together with sampler.period_sec the window
// fixes the per-series ring capacity at startup. Changing either value
// requires a restart.
type StoreConfig struct {
	// KeepSeconds is the retention window in seconds.
	// Range: 1-86400, Default: 20
	KeepSeconds int `yaml:"keep_seconds"`
}

// =============================================================================
// Sampler Configuration
// =============================================================================

// SamplerConfig configures the collection loop.
type SamplerConfig struct {
	// PeriodSec is the collection interval in seconds.
	// Range: 1-3600, Default: 1
	PeriodSec int `yaml:"period_sec"`

	// ProcessLimit caps the number of rows in the process table snapshot.
	// Processes are ranked by CPU usage before the cut.
	// Range: 1-4096, Default: 128
	ProcessLimit int `yaml:"process_limit"`

	// Disabled lists collectors to skip.
	// Known names: cpu, memory, disk, net, processes.
	Disabled []string `yaml:"disabled"`
}

// =============================================================================
// Stats Configuration
// =============================================================================

// StatsConfig configures query-time statistics.
type StatsConfig struct {
	// Accuracy is the DDSketch relative accuracy (0.01 = 1% error).
	// Lower = more accurate, more memory per query.
	// Range: 0.001-0.1, Default: 0.01
	Accuracy float64 `yaml:"accuracy"`
}

// =============================================================================
// Log Configuration
// =============================================================================

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum level to emit: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format selects the handler: auto, text, json.
	// "auto" picks a terminal-friendly handler when stderr is a TTY.
	// Default: auto
	Format string `yaml:"format"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:             config.DefaultListenAddress,
			ReadTimeout:        Duration(config.DefaultReadTimeout),
			WriteTimeout:       Duration(config.DefaultWriteTimeout),
			ShutdownTimeoutSec: config.DefaultShutdownTimeoutSec,
		},

		Store: StoreConfig{
			KeepSeconds: config.DefaultKeepSeconds,
		},

		Sampler: SamplerConfig{
			PeriodSec:    config.DefaultSamplePeriodSec,
			ProcessLimit: config.DefaultProcessLimit,
		},

		Stats: StatsConfig{
			Accuracy: config.DefaultSketchAccuracy,
		},

		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// =============================================================================
// Derived Values
// =============================================================================

// ResolveHostLabel returns the host label for collected series.
func (c *Config) ResolveHostLabel() string {
	if c.HostLabel != "" {
		return c.HostLabel
	}
	if v := os.Getenv(config.HostLabelEnv); v != "" {
		return v
	}
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return "localhost"
}

// ToStoreConfig combines the retention window with the sample period.
// The per-series ring capacity derives from both.
func (c *Config) ToStoreConfig() store.Config {
	return store.Config{
		KeepSeconds:     c.Store.KeepSeconds,
		SamplePeriodSec: c.Sampler.PeriodSec,
	}
}

// CollectorEnabled reports whether the named collector should run.
func (c *Config) CollectorEnabled(name string) bool {
	for _, d := range c.Sampler.Disabled {
		if d == name {
			return false
		}
	}
	return true
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Accepts Go duration strings ("10s", "1m30s") or plain integer seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
