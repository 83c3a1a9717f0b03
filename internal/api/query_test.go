package api

import (
	"net/http"
	"testing"
)

func TestHandleQuery_Scalar(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/query?metric=cpu.total_pct&from=2000&to=4000")
	wantStatus(t, rec, http.StatusOK)

	var body queryBody
	decode(t, rec, &body)

	if body.Metric != "cpu.total_pct" || body.Kind != "scalar" || body.Unit != "percent" {
		t.Errorf("unexpected header fields: %+v", body)
	}
	// Host label is filled in from the daemon config.
	if body.Labels["host"] != testHost {
		t.Errorf("host label not defaulted: %v", body.Labels)
	}
	if len(body.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(body.Samples))
	}
	if ts, v := body.Samples[0][0].(float64), body.Samples[0][1].(float64); ts != 2000 || v != 20 {
		t.Errorf("expected [2000,20], got [%v,%v]", ts, v)
	}
	if ts := body.Samples[2][0].(float64); ts != 4000 {
		t.Errorf("expected last ts 4000, got %v", ts)
	}
}

func TestHandleQuery_Vector(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/query?metric=cpu.core_pct")
	wantStatus(t, rec, http.StatusOK)

	var body queryBody
	decode(t, rec, &body)

	if body.Kind != "vector" {
		t.Fatalf("expected vector kind, got %q", body.Kind)
	}
	if len(body.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(body.Samples))
	}
	vals, ok := body.Samples[0][1].([]any)
	if !ok || len(vals) != 2 {
		t.Errorf("expected per-core value array, got %v", body.Samples[0][1])
	}
}

func TestHandleQuery_PinnedHostMisses(t *testing.T) {
	s := newTestServer(t)

	// Another host holds no data; the result is empty, not an error.
	rec := get(t, s, "/api/query?metric=cpu.total_pct&labels=host:other")
	wantStatus(t, rec, http.StatusOK)

	var body queryBody
	decode(t, rec, &body)
	if body.Labels["host"] != "other" {
		t.Errorf("pinned host overridden: %v", body.Labels)
	}
	if body.Samples == nil || len(body.Samples) != 0 {
		t.Errorf("expected empty samples array, got %v", body.Samples)
	}
}

func TestHandleQuery_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing metric", "/api/query", http.StatusBadRequest},
		{"unknown metric", "/api/query?metric=bogus.metric", http.StatusNotFound},
		{"disallowed label", "/api/query?metric=cpu.total_pct&labels=core:0", http.StatusUnprocessableEntity},
		{"malformed from", "/api/query?metric=cpu.total_pct&from=abc", http.StatusBadRequest},
		{"malformed to", "/api/query?metric=cpu.total_pct&to=1.5h", http.StatusBadRequest},
		{"inverted range", "/api/query?metric=cpu.total_pct&from=5000&to=1000", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			wantStatus(t, rec, tt.want)
		})
	}
}

func TestHandleSummary(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/summary?metric=cpu.total_pct")
	wantStatus(t, rec, http.StatusOK)

	var body summaryBody
	decode(t, rec, &body)

	if body.Count != 5 {
		t.Fatalf("expected count 5, got %d", body.Count)
	}
	if body.Min != 10 || body.Max != 50 || body.Sum != 150 || body.Avg != 30 {
		t.Errorf("unexpected aggregates: %+v", body)
	}
	// DDSketch percentiles carry 1% relative error.
	if body.P50 < 29 || body.P50 > 31 {
		t.Errorf("p50 out of tolerance: %v", body.P50)
	}
	if body.P99 < 49 || body.P99 > 51 {
		t.Errorf("p99 out of tolerance: %v", body.P99)
	}
	if body.FirstTs != 1000 || body.LastTs != 5000 {
		t.Errorf("unexpected window bounds: %d-%d", body.FirstTs, body.LastTs)
	}
}

func TestHandleSummary_EmptyWindow(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/summary?metric=cpu.total_pct&from=90000&to=99000")
	wantStatus(t, rec, http.StatusOK)

	var body summaryBody
	decode(t, rec, &body)
	if body.Count != 0 || body.Sum != 0 {
		t.Errorf("expected zero stats for empty window: %+v", body)
	}
}

func TestHandleSummary_VectorRejected(t *testing.T) {
	s := newTestServer(t)

	rec := get(t, s, "/api/summary?metric=cpu.core_pct")
	wantStatus(t, rec, http.StatusUnprocessableEntity)
}
