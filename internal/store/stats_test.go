package store

import (
	"math"
	"testing"
)

func TestSummarize_Empty(t *testing.T) {
	got := Summarize(nil, 0.01)
	if got.Count != 0 || got.Sum != 0 || got.Min != 0 || got.Max != 0 {
		t.Errorf("expected zero stats for empty window, got %+v", got)
	}

	got = Summarize([]Sample{}, 0.01)
	if got.Count != 0 {
		t.Errorf("expected zero count, got %d", got.Count)
	}
}

func TestSummarize_SingleSample(t *testing.T) {
	got := Summarize([]Sample{{TimestampMs: 5000, Value: 42}}, 0.01)

	if got.Count != 1 {
		t.Errorf("expected count=1, got %d", got.Count)
	}
	if got.Min != 42 || got.Max != 42 || got.Sum != 42 || got.Avg != 42 {
		t.Errorf("expected all aggregates 42, got %+v", got)
	}
	if got.FirstTs != 5000 || got.LastTs != 5000 {
		t.Errorf("expected first=last=5000, got %d..%d", got.FirstTs, got.LastTs)
	}
	// Quantiles of a single value sit within sketch accuracy of that value.
	for _, q := range []float64{got.P50, got.P90, got.P95, got.P99} {
		if math.Abs(q-42) > 1 {
			t.Errorf("expected quantiles near 42, got %+v", got)
		}
	}
}

func TestSummarize_KnownDistribution(t *testing.T) {
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Sample{TimestampMs: int64(i+1) * 1000, Value: float64(i + 1)}
	}

	got := Summarize(samples, 0.01)

	if got.Count != 100 {
		t.Errorf("expected count=100, got %d", got.Count)
	}
	if got.Sum != 5050 {
		t.Errorf("expected sum=5050, got %v", got.Sum)
	}
	if got.Min != 1 || got.Max != 100 {
		t.Errorf("expected min=1 max=100, got min=%v max=%v", got.Min, got.Max)
	}
	if got.Avg != 50.5 {
		t.Errorf("expected avg=50.5, got %v", got.Avg)
	}
	if got.FirstTs != 1000 || got.LastTs != 100000 {
		t.Errorf("expected ts range 1000..100000, got %d..%d", got.FirstTs, got.LastTs)
	}

	// The sketch guarantees relative accuracy; allow generous bounds.
	if got.P50 < 45 || got.P50 > 56 {
		t.Errorf("p50 out of range: %v", got.P50)
	}
	if got.P99 < 94 || got.P99 > 101 {
		t.Errorf("p99 out of range: %v", got.P99)
	}
	if got.P50 > got.P90 || got.P90 > got.P95 || got.P95 > got.P99 {
		t.Errorf("quantiles not monotonic: p50=%v p90=%v p95=%v p99=%v",
			got.P50, got.P90, got.P95, got.P99)
	}
}

func TestSummarize_AccuracyFallback(t *testing.T) {
	samples := []Sample{{1000, 10}, {2000, 20}, {3000, 30}}

	// Out-of-range accuracy falls back to the default rather than failing.
	for _, acc := range []float64{0, -1, 1, 2} {
		got := Summarize(samples, acc)
		if got.Count != 3 {
			t.Errorf("accuracy=%v: expected count=3, got %d", acc, got.Count)
		}
		if got.Min != 10 || got.Max != 30 {
			t.Errorf("accuracy=%v: unexpected min/max %v/%v", acc, got.Min, got.Max)
		}
	}
}

func TestSeriesStats(t *testing.T) {
	s := New(Config{KeepSeconds: 3600, SamplePeriodSec: 1})
	for i := 1; i <= 10; i++ {
		s.Append("mem.used{host=a}", Sample{TimestampMs: int64(i) * 1000, Value: float64(i * 100)})
	}

	got := s.SeriesStats("mem.used{host=a}", 3000, 7000, 0.01)
	if got.Count != 5 {
		t.Errorf("expected count=5 in window, got %d", got.Count)
	}
	if got.Min != 300 || got.Max != 700 {
		t.Errorf("expected min=300 max=700, got %v/%v", got.Min, got.Max)
	}
	if got.FirstTs != 3000 || got.LastTs != 7000 {
		t.Errorf("expected ts 3000..7000, got %d..%d", got.FirstTs, got.LastTs)
	}
}

func TestSeriesStats_UnknownSelector(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	got := s.SeriesStats("never.seen", 0, 1<<62, 0.01)
	if got.Count != 0 {
		t.Errorf("expected zero stats, got %+v", got)
	}
}

func BenchmarkSummarize(b *testing.B) {
	samples := make([]Sample, 3600)
	for i := range samples {
		samples[i] = Sample{TimestampMs: int64(i) * 1000, Value: float64(i % 100)}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Summarize(samples, 0.01)
	}
}
