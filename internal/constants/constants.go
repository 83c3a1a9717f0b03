// Package constants provides centralized domain-specific constants
// for the entire vigil application.
//
// This file consolidates the magic strings shared between the sampler,
// the store consumers, and the HTTP API so that no two packages can
// drift on a bucket key or a collector name.
package constants

// =============================================================================
// Store Bucket Keys
// =============================================================================

const (
	// SnapshotProcesses is the snapshot key holding the process table.
	SnapshotProcesses = "processes"

	// MetadataSystem is the metadata bucket holding host facts.
	MetadataSystem = "system"
)

// =============================================================================
// Collector Names - accepted in sampler.disabled
// =============================================================================

const (
	CollectorCPU       = "cpu"
	CollectorMemory    = "memory"
	CollectorDisk      = "disk"
	CollectorNet       = "net"
	CollectorProcesses = "processes"
)

// KnownCollectors contains all valid collector names.
var KnownCollectors = []string{
	CollectorCPU,
	CollectorMemory,
	CollectorDisk,
	CollectorNet,
	CollectorProcesses,
}

// IsKnownCollector checks if a collector name is valid.
func IsKnownCollector(name string) bool {
	for _, c := range KnownCollectors {
		if c == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Metric Units
// =============================================================================

const (
	// UnitPercent is a 0-100 utilization percentage.
	UnitPercent = "percent"

	// UnitBytes is an absolute byte count.
	UnitBytes = "bytes"

	// UnitBytesPerSec is a byte throughput rate.
	UnitBytesPerSec = "bytes/sec"
)

// =============================================================================
// Label Keys
// =============================================================================

const (
	// LabelHost identifies the sampled machine.
	LabelHost = "host"

	// LabelCore identifies a CPU core index.
	LabelCore = "core"

	// LabelDev identifies a block device.
	LabelDev = "dev"

	// LabelIface identifies a network interface.
	LabelIface = "iface"

	// LabelPID identifies a process id.
	LabelPID = "pid"

	// LabelComm identifies a process command name.
	LabelComm = "comm"
)

// LabelUniverse is the global set of label keys any metric may ever use.
// It is a guardrail on top of the per-metric allowed lists: a descriptor
// with a typoed label key cannot silently open up a new dimension.
var LabelUniverse = []string{
	LabelHost,
	LabelCore,
	LabelDev,
	LabelIface,
	LabelPID,
	LabelComm,
}

// InLabelUniverse checks if a label key is in the global allowed set.
func InLabelUniverse(key string) bool {
	for _, l := range LabelUniverse {
		if l == key {
			return true
		}
	}
	return false
}

// =============================================================================
// Export Formats
// =============================================================================

const (
	// FormatCSV exports two-column timestamp,value text.
	FormatCSV = "csv"

	// FormatJSON exports the query payload shape.
	FormatJSON = "json"

	// FormatParquet exports a compressed columnar file.
	FormatParquet = "parquet"
)

// ValidExportFormats contains all valid export format values.
var ValidExportFormats = []string{FormatCSV, FormatJSON, FormatParquet}

// IsValidExportFormat checks if an export format is valid.
func IsValidExportFormat(format string) bool {
	for _, f := range ValidExportFormats {
		if f == format {
			return true
		}
	}
	return false
}
