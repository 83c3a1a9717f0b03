// Package config provides configuration defaults and utilities
// for the vigil daemon.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultListenAddress is the default HTTP API listen address.
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:8080"

	// DefaultReadTimeout bounds how long a request may take to arrive.
	// Override via config: server.read_timeout
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds how long a response may take to drain.
	// Exports of full windows can be large, so this is generous.
	// Override via config: server.write_timeout
	DefaultWriteTimeout = 30 * time.Second

	// DefaultShutdownTimeoutSec is how long in-flight requests get to finish
	// during shutdown before the listener is torn down.
	// Override via config: server.shutdown_timeout_sec
	DefaultShutdownTimeoutSec = 10
)

// =============================================================================
// Sampling Defaults
// =============================================================================

const (
	// DefaultKeepSeconds is the retention window in seconds. Together with
	// DefaultSamplePeriodSec it fixes the per-series ring capacity:
	// capacity = max(1, keep_seconds / max(1, sample_period_sec)).
	// Override via config: store.keep_seconds
	DefaultKeepSeconds = 20

	// DefaultSamplePeriodSec is the collection interval in seconds.
	// Override via config: sampler.period_sec
	DefaultSamplePeriodSec = 1

	// DefaultProcessLimit caps the number of rows in the process table
	// snapshot. Processes are ranked by CPU usage before the cut.
	// Override via config: sampler.process_limit
	DefaultProcessLimit = 128
)

// =============================================================================
// Statistics Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the DDSketch relative accuracy used for
	// query-time percentiles (0.01 = 1% error).
	// Override via config: stats.accuracy
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Host Identity
// =============================================================================

const (
	// HostLabelEnv names the environment variable that overrides the host
	// label attached to every collected series. When unset, os.Hostname()
	// is used.
	HostLabelEnv = "VIGIL_HOST_LABEL"
)
