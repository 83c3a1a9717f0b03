package api

import (
	"math"
	"net/http"

	"github.com/vigil-sys/vigil/internal/errors"
	"github.com/vigil-sys/vigil/internal/metrics"
	"github.com/vigil-sys/vigil/internal/store"
)

// =============================================================================
// Query
// =============================================================================

// queryBody carries samples as [timestamp_ms, value] pairs, or
// [timestamp_ms, [values...]] for vector series.
type queryBody struct {
	Metric  string            `json:"metric"`
	Kind    string            `json:"kind"`
	Unit    string            `json:"unit"`
	Labels  map[string]string `json:"labels,omitempty"`
	Samples [][]any           `json:"samples"`
}

// handleQuery returns the raw samples for one series over a window. The
// window defaults to everything retained.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	tgt, err := s.resolveTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fromMs, toMs, err := window(r, 0, math.MaxInt64)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body := queryBody{
		Metric: tgt.desc.Name,
		Kind:   tgt.desc.Kind.String(),
		Unit:   tgt.desc.Unit,
		Labels: tgt.labels,
	}
	switch tgt.desc.Kind {
	case metrics.KindVector:
		body.Samples = vectorPairs(s.store.QueryVector(tgt.selector, fromMs, toMs))
	default:
		body.Samples = scalarPairs(s.store.Query(tgt.selector, fromMs, toMs))
	}
	writeJSON(w, r, http.StatusOK, body)
}

func scalarPairs(samples []store.Sample) [][]any {
	out := make([][]any, len(samples))
	for i, smp := range samples {
		out[i] = []any{smp.TimestampMs, smp.Value}
	}
	return out
}

func vectorPairs(samples []store.VectorSample) [][]any {
	out := make([][]any, len(samples))
	for i, smp := range samples {
		vals := smp.Values
		if vals == nil {
			vals = []float64{}
		}
		out[i] = []any{smp.TimestampMs, vals}
	}
	return out
}

// =============================================================================
// Summary
// =============================================================================

// summaryBody mirrors store.WindowStats with the query echoed back.
type summaryBody struct {
	Metric  string            `json:"metric"`
	Unit    string            `json:"unit"`
	Labels  map[string]string `json:"labels,omitempty"`
	Count   int64             `json:"count"`
	Sum     float64           `json:"sum"`
	Min     float64           `json:"min"`
	Max     float64           `json:"max"`
	Avg     float64           `json:"avg"`
	P50     float64           `json:"p50"`
	P90     float64           `json:"p90"`
	P95     float64           `json:"p95"`
	P99     float64           `json:"p99"`
	FirstTs int64             `json:"first_ts"`
	LastTs  int64             `json:"last_ts"`
}

// handleSummary computes window statistics for a scalar series.
// Percentiles are sketched at query time; vector series have no scalar
// summary and are rejected.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	tgt, err := s.resolveTarget(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tgt.desc.Kind == metrics.KindVector {
		writeError(w, r, errors.NewValidation("metric", "vector series cannot be summarized"))
		return
	}
	fromMs, toMs, err := window(r, 0, math.MaxInt64)
	if err != nil {
		writeError(w, r, err)
		return
	}

	st := s.store.SeriesStats(tgt.selector, fromMs, toMs, s.cfg.SketchAccuracy)
	writeJSON(w, r, http.StatusOK, summaryBody{
		Metric:  tgt.desc.Name,
		Unit:    tgt.desc.Unit,
		Labels:  tgt.labels,
		Count:   st.Count,
		Sum:     st.Sum,
		Min:     st.Min,
		Max:     st.Max,
		Avg:     st.Avg,
		P50:     st.P50,
		P90:     st.P90,
		P95:     st.P95,
		P99:     st.P99,
		FirstTs: st.FirstTs,
		LastTs:  st.LastTs,
	})
}
