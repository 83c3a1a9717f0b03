// Package collector reads host metrics from the /proc filesystem.
//
// Rate collectors (CPU, disk, net) are stateful: each call keeps the raw
// counters it read and reports deltas against the previous call. The
// first call therefore only seeds the baseline and reports zeros (CPU)
// or nothing at all (disk, net, processes).
//
// Collectors are not safe for concurrent use. The sampler drives them
// from a single goroutine.
//
// All collectors accept injected file openers so tests can feed fixture
// data instead of a live /proc.
package collector

import (
	"io"
	"os"
)

// openFunc opens a proc file for reading.
type openFunc func() (io.ReadCloser, error)

// fileOpener returns an openFunc for a fixed path.
func fileOpener(path string) openFunc {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// counterDelta returns cur-prev, clamped at zero for counter resets.
func counterDelta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
