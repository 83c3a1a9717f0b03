package store

import "time"

// Sample represents a single scalar measurement.
// This is the primary data unit flowing through the store.
type Sample struct {
	// TimestampMs is the unix timestamp in milliseconds.
	TimestampMs int64

	// Value is the measured value in the metric's registered unit.
	Value float64
}

// UnixMs returns the sample timestamp for ring range filtering.
func (s Sample) UnixMs() int64 { return s.TimestampMs }

// TimestampTime returns the timestamp as a time.Time.
func (s Sample) TimestampTime() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// VectorSample represents a single multi-value measurement, such as the
// per-core CPU utilizations taken in one sweep. The element order is fixed
// by the collector (core 0 first) and identical across samples of a series.
type VectorSample struct {
	// TimestampMs is the unix timestamp in milliseconds.
	TimestampMs int64

	// Values holds one value per vector element.
	Values []float64
}

// UnixMs returns the sample timestamp for ring range filtering.
func (s VectorSample) UnixMs() int64 { return s.TimestampMs }

// TimestampTime returns the timestamp as a time.Time.
func (s VectorSample) TimestampTime() time.Time {
	return time.UnixMilli(s.TimestampMs)
}
