package store

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

// WindowStats holds the summary of a scalar series over a query window.
// Percentiles come from a DDSketch built on the fly; nothing is
// precomputed or persisted, so stored data stays raw.
type WindowStats struct {
	Count   int64
	Sum     float64
	Min     float64
	Max     float64
	Avg     float64
	P50     float64
	P90     float64
	P95     float64
	P99     float64
	FirstTs int64
	LastTs  int64
}

// Summarize computes WindowStats over a slice of samples. Accuracy is the
// DDSketch relative accuracy (0.01 = 1% error); values outside (0, 1) fall
// back to 0.01. An empty input yields a zero WindowStats.
func Summarize(samples []Sample, accuracy float64) WindowStats {
	var stats WindowStats
	if len(samples) == 0 {
		return stats
	}

	if accuracy <= 0 || accuracy >= 1 {
		accuracy = 0.01
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		sketch = nil
	}

	stats.Min = math.MaxFloat64
	stats.Max = -math.MaxFloat64

	for _, s := range samples {
		stats.Count++
		stats.Sum += s.Value

		if s.Value < stats.Min {
			stats.Min = s.Value
		}
		if s.Value > stats.Max {
			stats.Max = s.Value
		}

		if stats.FirstTs == 0 || s.TimestampMs < stats.FirstTs {
			stats.FirstTs = s.TimestampMs
		}
		if s.TimestampMs > stats.LastTs {
			stats.LastTs = s.TimestampMs
		}

		if sketch != nil {
			sketch.Add(s.Value)
		}
	}

	stats.Avg = stats.Sum / float64(stats.Count)

	if sketch != nil {
		stats.P50, _ = sketch.GetValueAtQuantile(0.50)
		stats.P90, _ = sketch.GetValueAtQuantile(0.90)
		stats.P95, _ = sketch.GetValueAtQuantile(0.95)
		stats.P99, _ = sketch.GetValueAtQuantile(0.99)
	}

	return stats
}

// SeriesStats summarizes a scalar series over [fromMs, toMs]. An absent
// selector or empty window yields a zero WindowStats; like every other
// store operation it cannot fail.
func (s *Store) SeriesStats(selector string, fromMs, toMs int64, accuracy float64) WindowStats {
	return Summarize(s.Query(selector, fromMs, toMs), accuracy)
}
