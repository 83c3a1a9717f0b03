package store

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	vtesting "github.com/vigil-sys/vigil/internal/testing"
)

func TestConfig_Capacity(t *testing.T) {
	tests := []struct {
		name   string
		keep   int
		period int
		want   int
	}{
		{"twenty seconds at 1s", 20, 1, 20},
		{"four seconds at 1s", 4, 1, 4},
		{"uneven division truncates", 10, 3, 3},
		{"keep below period clamps to 1", 1, 5, 1},
		{"zero keep clamps to 1", 0, 1, 1},
		{"zero period treated as 1", 10, 0, 10},
		{"negative period treated as 1", 10, -4, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{KeepSeconds: tt.keep, SamplePeriodSec: tt.period}
			if got := cfg.Capacity(); got != tt.want {
				t.Errorf("expected capacity=%d, got %d", tt.want, got)
			}
		})
	}
}

func TestStore_AppendQuery(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	for i := 1; i <= 5; i++ {
		s.Append("cpu.total_pct{host=a}", Sample{TimestampMs: int64(i) * 1000, Value: float64(i) * 10})
	}

	got := s.Query("cpu.total_pct{host=a}", 2000, 4000)
	want := []Sample{{2000, 20}, {3000, 30}, {4000, 40}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if n := s.Count("cpu.total_pct{host=a}"); n != 5 {
		t.Errorf("expected count=5, got %d", n)
	}
}

func TestStore_EvictionWindow(t *testing.T) {
	// keep=4s at 1s period -> capacity 4; the fifth append evicts the
	// first sample and a full-window query sees only the last four.
	s := New(Config{KeepSeconds: 4, SamplePeriodSec: 1})

	if s.CapacityPerSeries() != 4 {
		t.Fatalf("expected capacity=4, got %d", s.CapacityPerSeries())
	}

	for i := 1; i <= 5; i++ {
		s.Append("m", Sample{TimestampMs: int64(i) * 1000, Value: float64(i)})
	}

	got := s.Query("m", 0, 10000)
	want := []Sample{{2000, 2}, {3000, 3}, {4000, 4}, {5000, 5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestStore_QueryUnknownSelector(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	if got := s.Query("never.seen", 0, 1<<62); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if got := s.QueryVector("never.seen", 0, 1<<62); len(got) != 0 {
		t.Errorf("expected empty vector result, got %v", got)
	}
	if n := s.Count("never.seen"); n != 0 {
		t.Errorf("expected count=0, got %d", n)
	}
}

func TestStore_NamespacesIndependent(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	sel := "cpu.core_pct{host=a}"
	s.AppendVector(sel, VectorSample{TimestampMs: 1000, Values: []float64{10, 20}})

	if s.HasScalar(sel) {
		t.Error("vector append must not create a scalar series")
	}
	if !s.HasVector(sel) {
		t.Error("vector series should exist")
	}

	// The same selector can hold both kinds without interference.
	s.Append(sel, Sample{TimestampMs: 2000, Value: 15})
	if !s.HasScalar(sel) {
		t.Error("scalar series should exist after scalar append")
	}

	if s.Count(sel) != 1 || s.CountVector(sel) != 1 {
		t.Errorf("expected one sample per namespace, got %d scalar and %d vector",
			s.Count(sel), s.CountVector(sel))
	}

	vecs := s.QueryVector(sel, 0, 10000)
	if len(vecs) != 1 || len(vecs[0].Values) != 2 {
		t.Errorf("vector namespace disturbed by scalar append: %v", vecs)
	}
	scalars := s.Query(sel, 0, 10000)
	if len(scalars) != 1 || scalars[0].Value != 15 {
		t.Errorf("scalar namespace disturbed: %v", scalars)
	}
}

func TestStore_ListSeries(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	s.Append("mem.used{host=a}", Sample{TimestampMs: 1, Value: 1})
	s.Append("cpu.total_pct{host=a}", Sample{TimestampMs: 1, Value: 1})
	s.AppendVector("cpu.core_pct{host=a}", VectorSample{TimestampMs: 1, Values: []float64{1}})
	// Selector present in both namespaces appears once.
	s.AppendVector("cpu.total_pct{host=a}", VectorSample{TimestampMs: 1, Values: []float64{1}})

	got := s.ListSeries()
	want := []string{"cpu.core_pct{host=a}", "cpu.total_pct{host=a}", "mem.used{host=a}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestStore_Snapshots(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	if _, ok := s.GetSnapshot("processes"); ok {
		t.Error("snapshot should not exist before put")
	}

	s.PutSnapshot("processes", []byte(`[{"pid":1}]`))
	payload, ok := s.GetSnapshot("processes")
	if !ok || string(payload) != `[{"pid":1}]` {
		t.Errorf("expected stored payload, got %q ok=%v", payload, ok)
	}

	// Put replaces wholesale.
	s.PutSnapshot("processes", []byte(`[]`))
	payload, _ = s.GetSnapshot("processes")
	if string(payload) != `[]` {
		t.Errorf("expected replacement payload, got %q", payload)
	}
}

func TestStore_MetadataReplace(t *testing.T) {
	s := New(Config{KeepSeconds: 20, SamplePeriodSec: 1})

	s.PutMetadata("system", map[string]any{"hostname": "h1", "cores": 4})
	s.PutMetadata("system", map[string]any{"hostname": "h2"})

	doc, ok := s.GetMetadata("system")
	if !ok {
		t.Fatal("metadata should exist")
	}
	if doc["hostname"] != "h2" {
		t.Errorf("expected hostname h2, got %v", doc["hostname"])
	}
	if _, stale := doc["cores"]; stale {
		t.Error("replace must not retain fields from the previous document")
	}

	all := s.AllMetadata()
	if len(all) != 1 {
		t.Errorf("expected 1 bucket, got %d", len(all))
	}

	if _, ok := s.GetMetadata("missing"); ok {
		t.Error("unknown metadata key should not be found")
	}
}

func TestStore_Stats(t *testing.T) {
	s := New(Config{KeepSeconds: 8, SamplePeriodSec: 2})

	for i := 0; i < 6; i++ {
		s.Append("a", Sample{TimestampMs: int64(i), Value: 1})
	}
	s.Append("b", Sample{TimestampMs: 1, Value: 1})
	s.AppendVector("v", VectorSample{TimestampMs: 1, Values: []float64{1, 2}})

	st := s.Stats()
	if st.ScalarSeries != 2 {
		t.Errorf("expected 2 scalar series, got %d", st.ScalarSeries)
	}
	if st.VectorSeries != 1 {
		t.Errorf("expected 1 vector series, got %d", st.VectorSeries)
	}
	// Series "a" capped at capacity 4.
	if st.ScalarSamples != 5 {
		t.Errorf("expected 5 scalar samples, got %d", st.ScalarSamples)
	}
	if st.VectorSamples != 1 {
		t.Errorf("expected 1 vector sample, got %d", st.VectorSamples)
	}
	if st.TotalSamples() != 6 {
		t.Errorf("expected 6 total samples, got %d", st.TotalSamples())
	}
	if st.IngestedSamples != 8 {
		t.Errorf("expected 8 ingested samples, got %d", st.IngestedSamples)
	}
	if st.DroppedSamples != 2 {
		t.Errorf("expected 2 dropped samples, got %d", st.DroppedSamples)
	}
	if st.CapacityPerSeries != 4 {
		t.Errorf("expected capacity 4, got %d", st.CapacityPerSeries)
	}
}

func TestStore_ConcurrentAppendQuery(t *testing.T) {
	s := New(Config{KeepSeconds: 3600, SamplePeriodSec: 1})
	h := vtesting.NewTestHelper(t)
	defer h.Wait()

	numWriters := 8
	samplesPerWriter := 200

	for w := 0; w < numWriters; w++ {
		h.Add(1)
		go func(writerID int) {
			defer h.Done()
			sel := fmt.Sprintf("m{w=%d}", writerID)
			for i := 0; i < samplesPerWriter; i++ {
				s.Append(sel, Sample{TimestampMs: int64(i), Value: float64(i)})
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		h.Add(1)
		go func(readerID int) {
			defer h.Done()
			for i := 0; i < 100; i++ {
				sel := fmt.Sprintf("m{w=%d}", readerID)
				samples := s.Query(sel, 0, int64(samplesPerWriter))
				for j := 1; j < len(samples); j++ {
					if samples[j-1].TimestampMs > samples[j].TimestampMs {
						h.Errorf("reader %d: out-of-order samples at %d", readerID, j)
						return
					}
				}
				s.ListSeries()
				s.Stats()
			}
		}(r)
	}
}

func TestStore_ConcurrentSeriesCreation(t *testing.T) {
	// Many goroutines racing to create the same series must agree on one
	// ring and lose no samples.
	s := New(Config{KeepSeconds: 3600, SamplePeriodSec: 1})

	var wg sync.WaitGroup
	numWriters := 16
	perWriter := 50

	for w := 0; w < numWriters; w++ {
		wg.Add(1)
		go func(writerID int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Append("contended", Sample{TimestampMs: int64(writerID*perWriter + i), Value: 1})
			}
		}(w)
	}
	wg.Wait()

	if n := s.Count("contended"); n != numWriters*perWriter {
		t.Errorf("expected %d samples, got %d", numWriters*perWriter, n)
	}
}

func BenchmarkStore_Append(b *testing.B) {
	s := New(Config{KeepSeconds: 3600, SamplePeriodSec: 1})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Append("cpu.total_pct{host=bench}", Sample{TimestampMs: int64(i), Value: float64(i)})
	}
}

func BenchmarkStore_Query(b *testing.B) {
	s := New(Config{KeepSeconds: 3600, SamplePeriodSec: 1})
	for i := 0; i < 3600; i++ {
		s.Append("cpu.total_pct{host=bench}", Sample{TimestampMs: int64(i) * 1000, Value: float64(i)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Query("cpu.total_pct{host=bench}", 900_000, 2_700_000)
	}
}
